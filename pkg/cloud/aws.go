package cloud

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"

	"github.com/cuemby/vibelab/pkg/log"
	"github.com/cuemby/vibelab/pkg/types"
)

const (
	edgeName   = "vibelab-edge"
	cdnComment = "vibelab shared edge"
	originID   = "vibelab-alb"

	// AWS managed policies: CachingDisabled and AllViewer. Fixed ids,
	// identical in every account.
	cachingDisabledPolicyID = "4135ea2d-6df8-44a3-9df3-4b5a84be39ad"
	allViewerPolicyID       = "216adef6-5c7f-47e4-b989-5492eafa07d3"
)

// AWS implements Capability against the real cloud APIs. Cluster
// configuration is read through the provider on every call so admin config
// changes apply without a restart.
type AWS struct {
	config  ConfigProvider
	region  string
	modelID string
	logger  zerolog.Logger

	ecs *ecs.Client
	ec2 *ec2.Client
	elb *elbv2.Client
	cdn *cloudfront.Client
	ecr *ecr.Client
	sts *sts.Client
}

// NewAWS builds the capability from the ambient credential chain. modelID
// is injected into every workspace task so the in-container agent talks to
// the right model.
func NewAWS(ctx context.Context, provider ConfigProvider, modelID string) (*AWS, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	if region := provider().Region; region != "" {
		cfg.Region = region
	}
	return &AWS{
		config:  provider,
		region:  cfg.Region,
		modelID: modelID,
		logger:  log.WithComponent("cloud"),
		ecs:     ecs.NewFromConfig(cfg),
		ec2:     ec2.NewFromConfig(cfg),
		elb:     elbv2.NewFromConfig(cfg),
		cdn:     cloudfront.NewFromConfig(cfg),
		ecr:     ecr.NewFromConfig(cfg),
		sts:     sts.NewFromConfig(cfg),
	}, nil
}

// RunTask derives a family-specific task definition from the configured
// base template, injects the workspace environment, and starts one task
// with a public IP.
func (a *AWS) RunTask(ctx context.Context, family types.ImageFamily, workspaceID string) (string, error) {
	cfg := a.config()

	base, err := a.ecs.DescribeTaskDefinition(ctx, &ecs.DescribeTaskDefinitionInput{
		TaskDefinition: aws.String(cfg.TaskFamily),
	})
	if err != nil {
		return "", classify("describe task definition", err)
	}

	containers := base.TaskDefinition.ContainerDefinitions
	env := []ecstypes.KeyValuePair{
		{Name: aws.String("WORKSPACE_ID"), Value: aws.String(workspaceID)},
		{Name: aws.String("AWS_REGION"), Value: aws.String(a.region)},
		{Name: aws.String("IMAGE_FAMILY"), Value: aws.String(string(family))},
		{Name: aws.String("BEDROCK_MODEL_ID"), Value: aws.String(a.modelID)},
	}
	for i := range containers {
		containers[i].Image = aws.String(retagImage(aws.ToString(containers[i].Image), string(family)))
		containers[i].Environment = mergeEnv(containers[i].Environment, env)
	}

	reg, err := a.ecs.RegisterTaskDefinition(ctx, &ecs.RegisterTaskDefinitionInput{
		Family:                  aws.String(cfg.TaskFamily + "-" + string(family)),
		ContainerDefinitions:    containers,
		Cpu:                     base.TaskDefinition.Cpu,
		Memory:                  base.TaskDefinition.Memory,
		NetworkMode:             base.TaskDefinition.NetworkMode,
		RequiresCompatibilities: base.TaskDefinition.RequiresCompatibilities,
		ExecutionRoleArn:        base.TaskDefinition.ExecutionRoleArn,
		TaskRoleArn:             base.TaskDefinition.TaskRoleArn,
	})
	if err != nil {
		return "", classify("register task definition", err)
	}

	out, err := a.ecs.RunTask(ctx, &ecs.RunTaskInput{
		Cluster:        aws.String(cfg.Cluster),
		TaskDefinition: reg.TaskDefinition.TaskDefinitionArn,
		LaunchType:     ecstypes.LaunchTypeFargate,
		Count:          aws.Int32(1),
		StartedBy:      aws.String(workspaceID),
		NetworkConfiguration: &ecstypes.NetworkConfiguration{
			AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
				Subnets:        cfg.Subnets,
				SecurityGroups: []string{cfg.SecurityGroup},
				AssignPublicIp: ecstypes.AssignPublicIpEnabled,
			},
		},
	})
	if err != nil {
		return "", classify("run task", err)
	}
	if len(out.Tasks) == 0 {
		reason := "no task started"
		if len(out.Failures) > 0 {
			reason = aws.ToString(out.Failures[0].Reason)
		}
		return "", &Error{Kind: KindPermanent, Op: "run task", Err: fmt.Errorf("%s", reason)}
	}
	arn := aws.ToString(out.Tasks[0].TaskArn)
	wsLog := log.WithWorkspaceID(workspaceID)
	wsLog.Debug().Str("task_arn", arn).Msg("Task started")
	return arn, nil
}

// StopTask requests a stop. A task already reaped by the cloud is not an
// error.
func (a *AWS) StopTask(ctx context.Context, taskARN string) error {
	_, err := a.ecs.StopTask(ctx, &ecs.StopTaskInput{
		Cluster: aws.String(a.config().Cluster),
		Task:    aws.String(taskARN),
		Reason:  aws.String("stopped by vibelab"),
	})
	if err := classify("stop task", err); err != nil && !IsNotFound(err) {
		return err
	}
	return nil
}

// DescribeTask reports the task's lifecycle status and addresses. The
// public IP requires a second lookup through the task's network interface.
func (a *AWS) DescribeTask(ctx context.Context, taskARN string) (*TaskStatus, error) {
	out, err := a.ecs.DescribeTasks(ctx, &ecs.DescribeTasksInput{
		Cluster: aws.String(a.config().Cluster),
		Tasks:   []string{taskARN},
	})
	if err != nil {
		return nil, classify("describe task", err)
	}
	if len(out.Tasks) == 0 {
		return nil, notFound("describe task", "task")
	}
	task := out.Tasks[0]

	status := &TaskStatus{
		Status:         aws.ToString(task.LastStatus),
		StartedAt:      task.StartedAt,
		TaskDefinition: aws.ToString(task.TaskDefinitionArn),
	}

	eniID := attachmentDetail(task, "networkInterfaceId")
	status.PrivateIP = attachmentDetail(task, "privateIPv4Address")
	if eniID != "" {
		enis, err := a.ec2.DescribeNetworkInterfaces(ctx, &ec2.DescribeNetworkInterfacesInput{
			NetworkInterfaceIds: []string{eniID},
		})
		// The ENI disappears when the task winds down; report what we have.
		if err == nil && len(enis.NetworkInterfaces) > 0 {
			eni := enis.NetworkInterfaces[0]
			if eni.Association != nil {
				status.PublicIP = aws.ToString(eni.Association.PublicIp)
			}
			if status.PrivateIP == "" {
				status.PrivateIP = aws.ToString(eni.PrivateIpAddress)
			}
		}
	}
	return status, nil
}

// ListRunningTasks lists running tasks of the workspace task family. Tasks
// of other families (including the control plane itself) are excluded by
// the family filter.
func (a *AWS) ListRunningTasks(ctx context.Context) ([]RunningTask, error) {
	cfg := a.config()
	var arns []string
	var next *string
	for {
		out, err := a.ecs.ListTasks(ctx, &ecs.ListTasksInput{
			Cluster:       aws.String(cfg.Cluster),
			Family:        aws.String(cfg.TaskFamily),
			DesiredStatus: ecstypes.DesiredStatusRunning,
			NextToken:     next,
		})
		if err != nil {
			return nil, classify("list tasks", err)
		}
		arns = append(arns, out.TaskArns...)
		if out.NextToken == nil {
			break
		}
		next = out.NextToken
	}
	if len(arns) == 0 {
		return nil, nil
	}

	var tasks []RunningTask
	for start := 0; start < len(arns); start += 100 {
		end := min(start+100, len(arns))
		out, err := a.ecs.DescribeTasks(ctx, &ecs.DescribeTasksInput{
			Cluster: aws.String(cfg.Cluster),
			Tasks:   arns[start:end],
		})
		if err != nil {
			return nil, classify("describe tasks", err)
		}
		for _, task := range out.Tasks {
			arn := aws.ToString(task.TaskArn)
			tasks = append(tasks, RunningTask{
				TaskARN:        arn,
				TaskID:         taskIDFromARN(arn),
				Status:         aws.ToString(task.LastStatus),
				StartedAt:      task.StartedAt,
				TaskDefinition: aws.ToString(task.TaskDefinitionArn),
			})
		}
	}
	return tasks, nil
}

// EnsureLoadBalancer creates or discovers the shared router and its HTTP
// listener with a default 404 action.
func (a *AWS) EnsureLoadBalancer(ctx context.Context) (*LoadBalancer, error) {
	cfg := a.config()

	var lbARN, lbDNS string
	desc, err := a.elb.DescribeLoadBalancers(ctx, &elbv2.DescribeLoadBalancersInput{
		Names: []string{edgeName},
	})
	switch {
	case err == nil && len(desc.LoadBalancers) > 0:
		lbARN = aws.ToString(desc.LoadBalancers[0].LoadBalancerArn)
		lbDNS = aws.ToString(desc.LoadBalancers[0].DNSName)
	case IsNotFound(classify("describe load balancer", err)):
		created, err := a.elb.CreateLoadBalancer(ctx, &elbv2.CreateLoadBalancerInput{
			Name:           aws.String(edgeName),
			Subnets:        cfg.Subnets,
			SecurityGroups: []string{cfg.SecurityGroup},
			Scheme:         elbtypes.LoadBalancerSchemeEnumInternetFacing,
			Type:           elbtypes.LoadBalancerTypeEnumApplication,
		})
		if err != nil {
			return nil, classify("create load balancer", err)
		}
		lbARN = aws.ToString(created.LoadBalancers[0].LoadBalancerArn)
		lbDNS = aws.ToString(created.LoadBalancers[0].DNSName)
		a.logger.Info().Str("dns", lbDNS).Msg("Created shared load balancer")
	case err != nil:
		return nil, classify("describe load balancer", err)
	default:
		return nil, notFound("describe load balancer", "load balancer")
	}

	listeners, err := a.elb.DescribeListeners(ctx, &elbv2.DescribeListenersInput{
		LoadBalancerArn: aws.String(lbARN),
	})
	if err != nil {
		return nil, classify("describe listeners", err)
	}
	var listenerARN string
	if len(listeners.Listeners) > 0 {
		listenerARN = aws.ToString(listeners.Listeners[0].ListenerArn)
	} else {
		listener, err := a.elb.CreateListener(ctx, &elbv2.CreateListenerInput{
			LoadBalancerArn: aws.String(lbARN),
			Port:            aws.Int32(80),
			Protocol:        elbtypes.ProtocolEnumHttp,
			DefaultActions: []elbtypes.Action{{
				Type: elbtypes.ActionTypeEnumFixedResponse,
				FixedResponseConfig: &elbtypes.FixedResponseActionConfig{
					StatusCode:  aws.String("404"),
					ContentType: aws.String("text/plain"),
					MessageBody: aws.String("unknown workspace"),
				},
			}},
		})
		if err != nil {
			return nil, classify("create listener", err)
		}
		listenerARN = aws.ToString(listener.Listeners[0].ListenerArn)
	}

	return &LoadBalancer{ARN: lbARN, DNSName: lbDNS, ListenerARN: listenerARN}, nil
}

// AttachWorkspace wires the workspace IP into the shared router under its
// path prefix. Re-attaching reuses the existing handles and re-targets the
// group to exactly the given IP.
func (a *AWS) AttachWorkspace(ctx context.Context, workspaceID, targetIP string, targetPort int32) (*Attachment, error) {
	cfg := a.config()
	if cfg.ListenerARN == "" {
		return nil, &Error{Kind: KindPermanent, Op: "attach workspace", Err: fmt.Errorf("edge not configured")}
	}

	// CreateTargetGroup with identical settings is idempotent and
	// returns the existing group.
	tg, err := a.elb.CreateTargetGroup(ctx, &elbv2.CreateTargetGroupInput{
		Name:                aws.String(workspaceID),
		Protocol:            elbtypes.ProtocolEnumHttp,
		Port:                aws.Int32(targetPort),
		VpcId:               aws.String(cfg.VPCID),
		TargetType:          elbtypes.TargetTypeEnumIp,
		HealthCheckProtocol: elbtypes.ProtocolEnumHttp,
		HealthCheckPath:     aws.String("/"),
	})
	if err != nil {
		return nil, classify("create target group", err)
	}
	tgARN := aws.ToString(tg.TargetGroups[0].TargetGroupArn)

	if err := a.retarget(ctx, tgARN, targetIP, targetPort); err != nil {
		return nil, err
	}

	pathPrefix := "/" + workspaceID
	ruleARN, err := a.ensureRule(ctx, cfg.ListenerARN, workspaceID, pathPrefix, tgARN)
	if err != nil {
		return nil, err
	}

	return &Attachment{TargetGroupARN: tgARN, RuleARN: ruleARN, PathPrefix: pathPrefix}, nil
}

// retarget makes the target group's registered targets exactly {ip}.
func (a *AWS) retarget(ctx context.Context, tgARN, ip string, port int32) error {
	health, err := a.elb.DescribeTargetHealth(ctx, &elbv2.DescribeTargetHealthInput{
		TargetGroupArn: aws.String(tgARN),
	})
	if err != nil {
		return classify("describe target health", err)
	}
	var stale []elbtypes.TargetDescription
	current := false
	for _, d := range health.TargetHealthDescriptions {
		if aws.ToString(d.Target.Id) == ip {
			current = true
			continue
		}
		stale = append(stale, *d.Target)
	}
	if len(stale) > 0 {
		if _, err := a.elb.DeregisterTargets(ctx, &elbv2.DeregisterTargetsInput{
			TargetGroupArn: aws.String(tgARN),
			Targets:        stale,
		}); err != nil {
			return classify("deregister targets", err)
		}
	}
	if !current {
		if _, err := a.elb.RegisterTargets(ctx, &elbv2.RegisterTargetsInput{
			TargetGroupArn: aws.String(tgARN),
			Targets: []elbtypes.TargetDescription{{
				Id:   aws.String(ip),
				Port: aws.Int32(port),
			}},
		}); err != nil {
			return classify("register targets", err)
		}
	}
	return nil
}

// ensureRule inserts the path-prefix forwarding rule, reusing an existing
// rule for the same prefix.
func (a *AWS) ensureRule(ctx context.Context, listenerARN, workspaceID, pathPrefix, tgARN string) (string, error) {
	if arn, err := a.findRule(ctx, listenerARN, pathPrefix); err != nil {
		return "", err
	} else if arn != "" {
		return arn, nil
	}

	rule, err := a.elb.CreateRule(ctx, &elbv2.CreateRuleInput{
		ListenerArn: aws.String(listenerARN),
		Priority:    aws.Int32(rulePriority(workspaceID)),
		Conditions: []elbtypes.RuleCondition{{
			Field: aws.String("path-pattern"),
			PathPatternConfig: &elbtypes.PathPatternConditionConfig{
				Values: []string{pathPrefix, pathPrefix + "/*"},
			},
		}},
		Actions: []elbtypes.Action{{
			Type:           elbtypes.ActionTypeEnumForward,
			TargetGroupArn: aws.String(tgARN),
		}},
	})
	if err != nil {
		// A concurrent attach of the same workspace can win the race;
		// fall back to the rule it created.
		if arn, ferr := a.findRule(ctx, listenerARN, pathPrefix); ferr == nil && arn != "" {
			return arn, nil
		}
		return "", classify("create rule", err)
	}
	return aws.ToString(rule.Rules[0].RuleArn), nil
}

func (a *AWS) findRule(ctx context.Context, listenerARN, pathPrefix string) (string, error) {
	rules, err := a.elb.DescribeRules(ctx, &elbv2.DescribeRulesInput{
		ListenerArn: aws.String(listenerARN),
	})
	if err != nil {
		return "", classify("describe rules", err)
	}
	for _, rule := range rules.Rules {
		for _, cond := range rule.Conditions {
			if cond.PathPatternConfig == nil {
				continue
			}
			for _, v := range cond.PathPatternConfig.Values {
				if v == pathPrefix || v == pathPrefix+"/*" {
					return aws.ToString(rule.RuleArn), nil
				}
			}
		}
	}
	return "", nil
}

// DetachWorkspace removes the rule and target group. Detaching a workspace
// that was never attached is a no-op.
func (a *AWS) DetachWorkspace(ctx context.Context, workspaceID string) error {
	cfg := a.config()

	if cfg.ListenerARN != "" {
		arn, err := a.findRule(ctx, cfg.ListenerARN, "/"+workspaceID)
		if err != nil {
			return err
		}
		if arn != "" {
			if _, err := a.elb.DeleteRule(ctx, &elbv2.DeleteRuleInput{RuleArn: aws.String(arn)}); err != nil {
				if cerr := classify("delete rule", err); !IsNotFound(cerr) {
					return cerr
				}
			}
		}
	}

	tgs, err := a.elb.DescribeTargetGroups(ctx, &elbv2.DescribeTargetGroupsInput{
		Names: []string{workspaceID},
	})
	if err != nil {
		cerr := classify("describe target groups", err)
		if IsNotFound(cerr) {
			return nil
		}
		return cerr
	}
	for _, tg := range tgs.TargetGroups {
		if _, err := a.elb.DeleteTargetGroup(ctx, &elbv2.DeleteTargetGroupInput{
			TargetGroupArn: tg.TargetGroupArn,
		}); err != nil {
			if cerr := classify("delete target group", err); !IsNotFound(cerr) {
				return cerr
			}
		}
	}
	return nil
}

// EnsureCDN creates or discovers the HTTPS distribution in front of the
// router. Caching is disabled and all methods are forwarded so the IDE's
// REST and WebSocket traffic pass through.
func (a *AWS) EnsureCDN(ctx context.Context, originDNS string) (*Distribution, error) {
	if id := a.config().CDNDistributionID; id != "" {
		got, err := a.cdn.GetDistribution(ctx, &cloudfront.GetDistributionInput{Id: aws.String(id)})
		if err == nil {
			return &Distribution{
				ID:     aws.ToString(got.Distribution.Id),
				Domain: aws.ToString(got.Distribution.DomainName),
			}, nil
		}
		if cerr := classify("get distribution", err); !IsNotFound(cerr) {
			return nil, cerr
		}
	}

	if dist, err := a.findDistribution(ctx); err != nil {
		return nil, err
	} else if dist != nil {
		return dist, nil
	}

	allMethods := []cftypes.Method{
		cftypes.MethodGet, cftypes.MethodHead, cftypes.MethodOptions,
		cftypes.MethodPut, cftypes.MethodPost, cftypes.MethodPatch, cftypes.MethodDelete,
	}
	created, err := a.cdn.CreateDistribution(ctx, &cloudfront.CreateDistributionInput{
		DistributionConfig: &cftypes.DistributionConfig{
			CallerReference: aws.String(edgeName),
			Comment:         aws.String(cdnComment),
			Enabled:         aws.Bool(true),
			Origins: &cftypes.Origins{
				Quantity: aws.Int32(1),
				Items: []cftypes.Origin{{
					Id:         aws.String(originID),
					DomainName: aws.String(originDNS),
					CustomOriginConfig: &cftypes.CustomOriginConfig{
						HTTPPort:             aws.Int32(80),
						HTTPSPort:            aws.Int32(443),
						OriginProtocolPolicy: cftypes.OriginProtocolPolicyHttpOnly,
					},
				}},
			},
			DefaultCacheBehavior: &cftypes.DefaultCacheBehavior{
				TargetOriginId:        aws.String(originID),
				ViewerProtocolPolicy:  cftypes.ViewerProtocolPolicyRedirectToHttps,
				CachePolicyId:         aws.String(cachingDisabledPolicyID),
				OriginRequestPolicyId: aws.String(allViewerPolicyID),
				AllowedMethods: &cftypes.AllowedMethods{
					Quantity: aws.Int32(int32(len(allMethods))),
					Items:    allMethods,
					CachedMethods: &cftypes.CachedMethods{
						Quantity: aws.Int32(2),
						Items:    []cftypes.Method{cftypes.MethodGet, cftypes.MethodHead},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, classify("create distribution", err)
	}
	dist := &Distribution{
		ID:     aws.ToString(created.Distribution.Id),
		Domain: aws.ToString(created.Distribution.DomainName),
	}
	a.logger.Info().Str("domain", dist.Domain).Msg("Created CDN distribution")
	return dist, nil
}

func (a *AWS) findDistribution(ctx context.Context) (*Distribution, error) {
	var marker *string
	for {
		out, err := a.cdn.ListDistributions(ctx, &cloudfront.ListDistributionsInput{Marker: marker})
		if err != nil {
			return nil, classify("list distributions", err)
		}
		if out.DistributionList == nil {
			return nil, nil
		}
		for _, item := range out.DistributionList.Items {
			if aws.ToString(item.Comment) == cdnComment {
				return &Distribution{
					ID:     aws.ToString(item.Id),
					Domain: aws.ToString(item.DomainName),
				}, nil
			}
		}
		if !aws.ToBool(out.DistributionList.IsTruncated) {
			return nil, nil
		}
		marker = out.DistributionList.NextMarker
	}
}

// EnsureRepository creates or discovers the image repository.
func (a *AWS) EnsureRepository(ctx context.Context, name string) (string, error) {
	created, err := a.ecr.CreateRepository(ctx, &ecr.CreateRepositoryInput{
		RepositoryName: aws.String(name),
	})
	if err == nil {
		return aws.ToString(created.Repository.RepositoryUri), nil
	}
	desc, derr := a.ecr.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RepositoryNames: []string{name},
	})
	if derr != nil || len(desc.Repositories) == 0 {
		return "", classify("create repository", err)
	}
	return aws.ToString(desc.Repositories[0].RepositoryUri), nil
}

// Identity returns the active account and region.
func (a *AWS) Identity(ctx context.Context) (*Caller, error) {
	out, err := a.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, classify("get caller identity", err)
	}
	return &Caller{AccountID: aws.ToString(out.Account), Region: a.region}, nil
}

// rulePriority derives a stable listener rule priority from the workspace
// id. ALB priorities must be unique in 1..50000; the hash spreads
// workspaces over a band well below the default action.
func rulePriority(workspaceID string) int32 {
	h := fnv.New32a()
	h.Write([]byte(workspaceID))
	return int32(h.Sum32()%47000) + 1000
}

// retagImage swaps the image tag for the family tag.
func retagImage(image, tag string) string {
	if idx := strings.LastIndex(image, ":"); idx > strings.LastIndex(image, "/") {
		image = image[:idx]
	}
	return image + ":" + tag
}

// mergeEnv overlays vars onto env, replacing entries with the same name.
func mergeEnv(env, vars []ecstypes.KeyValuePair) []ecstypes.KeyValuePair {
	out := make([]ecstypes.KeyValuePair, 0, len(env)+len(vars))
	names := make(map[string]bool, len(vars))
	for _, v := range vars {
		names[aws.ToString(v.Name)] = true
	}
	for _, e := range env {
		if !names[aws.ToString(e.Name)] {
			out = append(out, e)
		}
	}
	return append(out, vars...)
}

func attachmentDetail(task ecstypes.Task, name string) string {
	for _, att := range task.Attachments {
		if aws.ToString(att.Type) != "ElasticNetworkInterface" {
			continue
		}
		for _, d := range att.Details {
			if aws.ToString(d.Name) == name {
				return aws.ToString(d.Value)
			}
		}
	}
	return ""
}

func taskIDFromARN(arn string) string {
	if idx := strings.LastIndex(arn, "/"); idx != -1 {
		return arn[idx+1:]
	}
	return arn
}

/*
Package log provides structured logging for vibelab built on zerolog.

A single global logger is initialized once at process start via Init and
consumed through child loggers carrying component and entity fields:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("orchestrator")
	logger.Info().Str("workspace_id", w.ID).Msg("workspace spawned")

Console output (human-readable, RFC3339 timestamps) is the default;
JSONOutput switches to newline-delimited JSON for ingestion.
*/
package log

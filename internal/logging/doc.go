// Package logging provides structured logging for codepair.
//
// It wraps log/slog with a JSON handler. Pipeline runs attach their run ID,
// stage and worker role as persistent attributes so one run can be followed
// through a shared log file:
//
//	logger, err := logging.NewLoggerWithRotation(dir, "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	runLog := logger.WithRun(runID).WithStage("coding_turn").WithWorker("w1")
//	runLog.Info("code extracted", "filename", "src/App.tsx", "bytes", 2048)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"code extracted","run_id":"...","stage":"coding_turn","worker":"w1","filename":"src/App.tsx","bytes":2048}
//
// Rotated files are named codepair.log.1 (newest) through codepair.log.N,
// gzipped when RotationConfig.Compress is set.
//
// [ReadEntries] and [FilterEntries] read the log back for the
// "codepair logs" command. Library packages default to [NopLogger].
package logging

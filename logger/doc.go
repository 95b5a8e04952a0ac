// Package logger provides structured logging capabilities.
//
// The logger package sets up and configures the application's logging
// system using zap. Development mode writes coloured console lines, production
// mode writes JSON. Either can additionally be copied to a log file.
//
// Usage:
//
//	logger, err := logger.New("development", "debug")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger.Info("Application started")
//	logger.Error("An error occurred", zap.Error(err))
package logger

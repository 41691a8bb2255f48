package log

import (
	"os"
	"path/filepath"

	"github.com/claimstream/edi-fixtures/conf"
	"github.com/sirupsen/logrus"
)

var (
	Generator logrus.FieldLogger
	Parser    logrus.FieldLogger
)

func init() {
	Generator = Logger(logrus.New(), conf.GetEnv("EDI_GENERATOR_LOG"),
		"generator", conf.GetEnv("ENVIRONMENT"))
	Parser = Logger(logrus.New(), conf.GetEnv("EDI_PARSER_LOG"),
		"parser", conf.GetEnv("ENVIRONMENT"))
}

func Logger(logger *logrus.Logger, outputFile string,
	application, environment string) logrus.FieldLogger {

	if outputFile != "" {
		if file, err := os.OpenFile(filepath.Clean(outputFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640); err == nil {
			logger.SetOutput(file)
		} else {
			logger.Infof("Failed to open output file %s. Will use stderr. %s",
				outputFile, err.Error())
		}
	}

	return logger.WithFields(logrus.Fields{
		"application": application,
		"environment": environment})
}

package main

import (
	"io"
	"os"

	nested "github.com/antonfisher/nested-logrus-formatter"
	log "github.com/sirupsen/logrus"
)

func init() {
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		ShowFullLevel:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	log.SetLevel(log.DebugLevel)
}

// initLog sends log output to stdout and appends it to file. An empty file
// name logs to stdout only.
func initLog(file, level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("unknown log level %q, keeping %s", level, log.GetLevel())
	} else {
		log.SetLevel(lvl)
	}
	if file == "" {
		log.SetOutput(os.Stdout)
		return
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.SetOutput(os.Stdout)
		log.Info("failed to log to file.")
		return
	}
	//同时写文件和屏幕
	log.SetOutput(io.MultiWriter(os.Stdout, f))
}

func main() {
	Execute()
}

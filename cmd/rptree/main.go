package main

import (
	"fmt"

	"github.com/tyemirov/rptree/internal/cli"
	"github.com/tyemirov/rptree/internal/tree"
	"github.com/tyemirov/rptree/internal/utils"
)

// main is the entry point for the rptree command.
func main() {
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger()
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer loggerInstance.Sync()
	if applicationExecutionError := cli.Execute(loggerInstance); applicationExecutionError != nil {
		loggerInstance.Fatal(fmt.Sprintf(utils.ErrorLogFormat, tree.ErrorKind(applicationExecutionError), applicationExecutionError))
	}
}

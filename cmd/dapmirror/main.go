package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cmdutil "github.com/microsoft/dapmirror/internal/commands"
	"github.com/microsoft/dapmirror/internal/dapmirror/commands"
	"github.com/microsoft/dapmirror/pkg/logger"
	"github.com/microsoft/dapmirror/pkg/osutil"
	"github.com/microsoft/dapmirror/pkg/resiliency"
)

const (
	errCommandError = 1
	errSetup        = 2
	errPanic        = 3
)

func main() {
	log := logger.New("dapmirror")
	defer func() {
		panicErr := resiliency.MakePanicError(recover(), log.Logger)
		if panicErr != nil {
			os.Stderr.WriteString(panicErr.Error() + string(osutil.LineSep()))
			log.Flush()
			os.Exit(errPanic)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := commands.NewRootCommand(log)
	if err != nil {
		cmdutil.ErrorExit(log, err, errSetup)
	}

	err = root.ExecuteContext(ctx)
	if err != nil {
		stop()
		cmdutil.ErrorExit(log, err, errCommandError)
	} else {
		log.Flush()
	}
}

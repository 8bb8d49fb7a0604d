package run

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ridge/geyser/tlog"
	"github.com/ridge/must/v2"
	"github.com/ridge/parallel"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var fs = pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)

func init() {
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.String("log-format", "", "Log format (json|text)")
	fs.String("log-color", "", "Colored logs (yes|no|auto)")
	fs.BoolP("verbose", "v", false, "Enable verbose (debug level) messages")
	// Hide usage while parsing the command line here, will be covered by a regular command line parsing.
	fs.Usage = func() {}

	// Add options help to the main command-line parser.
	pflag.CommandLine.AddFlagSet(fs)
}

// Tool runs the top-level task of your program, watching for signals.
//
// The context passed to the task carries the logger configured by the
// --log-format, --log-color and --verbose flags. If an interruption or
// termination signal arrives, the context is closed; a second signal exits
// the process without waiting for the task.
//
// Tool does not return. It exits with code 0 if the task returns nil, with
// the code of a WithExitCode error, or with code 1 otherwise. Deferred
// handlers installed before calling Tool never run.
//
//	func main() {
//	    pflag.Parse()
//	    run.Tool(func(ctx context.Context) error {
//	        return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
//	            spawn("plugin", parallel.Fail, plugin.Run)
//	            spawn("metrics", parallel.Fail, metricsServer.Run)
//	            return nil
//	        })
//	    })
//	}
func Tool(task func(ctx context.Context) error) {
	// os.Exit doesn't run deferred functions, so we'll call it in the first
	// defer which runs last
	var err error
	defer func() {
		var wec WithExitCode
		if errors.As(err, &wec) {
			os.Exit(wec.ExitCode())
		}
		if err != nil {
			os.Exit(1)
		}
	}()

	ctx := rootContext()

	err = parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("main", parallel.Exit, task)
		spawn("signals", parallel.Exit, handleSignals)
		return nil
	})
	logger := tlog.Get(ctx)
	if err != nil {
		logger.Error("Error", zap.Error(err))
	}
	_ = logger.Sync()
}

// Server runs the top-level task of your program similar To Tool.
//
// The difference is in signal handling: if the top-level task exits with
// (possibly wrapped) context.Canceled while handling the signal, the program
// exits with code 0.
//
// Note that any other error returned during signal handling is still considered
// an error and makes Server exit with code 1.
func Server(task func(ctx context.Context) error) {
	Tool(func(ctx context.Context) error {
		err := task(ctx)
		if errors.Is(err, ctx.Err()) {
			return nil
		}
		return err
	})
}

// WithExitCode is an optional interface that can be implemented by an error.
//
// When a (possibly wrapped) error implementing WithExitCode reaches the top
// level, the value returned by the ExitCode method becomes the exit code of the
// process. The default exit code for other errors is 1.
type WithExitCode interface {
	ExitCode() int
}

// cliConfig returns the logger Config derived from the command line
func cliConfig() (tlog.Config, error) {
	if err := fs.Parse(os.Args[1:]); err != nil && !errors.Is(err, pflag.ErrHelp) {
		return tlog.Config{}, err
	}

	format := tlog.FormatText
	if fs.Lookup("log-format").Changed {
		f, err := tlog.ParseFormat(must.OK1(fs.GetString("log-format")))
		if err != nil {
			return tlog.Config{}, err
		}
		format = f
	}
	color := tlog.ColorAuto
	if fs.Lookup("log-color").Changed {
		c, err := tlog.ParseColor(must.OK1(fs.GetString("log-color")))
		if err != nil {
			return tlog.Config{}, err
		}
		color = c
	}

	return tlog.Config{
		Format:  format,
		Color:   color,
		Verbose: must.OK1(fs.GetBool("verbose")),
	}, nil
}

func rootContext() context.Context {
	config, err := cliConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return tlog.WithLogger(context.Background(), tlog.New(config))
}

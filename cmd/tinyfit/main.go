// Command tinyfit fits a polynomial to a data set by least squares, by
// particle swarm search, or both, and prints the coefficients.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/copyleftdev/tinyfit/internal/curvefit"
	"github.com/copyleftdev/tinyfit/internal/dataset"
	"github.com/copyleftdev/tinyfit/internal/logging"
)

const (
	methodLS      = "ls"
	methodPSO     = "pso"
	methodCompare = "compare"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	data       string
	degree     int
	method     string
	particles  int
	iterations int
	seed       string
	refine     bool
	logLevel   string
	example    string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("tinyfit", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.data, "data", "", "YAML or JSON data set; the built-in six-point example when empty")
	fs.IntVar(&opts.degree, "degree", -1, "polynomial degree; the data set's degree when negative")
	fs.StringVar(&opts.method, "method", methodLS, "ls, pso or compare")
	fs.IntVar(&opts.particles, "particles", curvefit.DefaultParticles, "swarm size")
	fs.IntVar(&opts.iterations, "iterations", curvefit.DefaultIterations, "swarm iterations")
	fs.StringVar(&opts.seed, "seed", "0xBEEF1234", "swarm seed, any base strconv accepts")
	fs.BoolVar(&opts.refine, "refine", false, "polish the swarm result with Newton's method")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	fs.StringVar(&opts.example, "example", "", "print the built-in data set as yaml or json and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	switch opts.method {
	case methodLS, methodPSO, methodCompare:
	default:
		return nil, fmt.Errorf("unknown method %q", opts.method)
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "tinyfit:", err)
		return 2
	}

	logger := logging.NewWithFormat(logging.ParseLevel(opts.logLevel), stderr, logging.FormatText)

	if opts.example != "" {
		out, err := dataset.Example().Marshal(dataset.Format(opts.example))
		if err != nil {
			logger.Error("Cannot print example", map[string]interface{}{"error": err.Error()})
			return 1
		}
		if len(out) > 0 && out[len(out)-1] != '\n' {
			out = append(out, '\n')
		}
		_, _ = stdout.Write(out)
		return 0
	}

	if err := fit(opts, logger, stdout); err != nil {
		logger.Error("Fit failed", map[string]interface{}{"error": err.Error()})
		fmt.Fprintln(stderr, "tinyfit:", err)
		return 1
	}
	return 0
}

func fit(opts *options, logger *logging.Logger, stdout io.Writer) error {
	ds := dataset.Example()
	if opts.data != "" {
		var err error
		if ds, err = dataset.Load(opts.data); err != nil {
			return err
		}
	}
	problem := ds.Problem()
	if opts.degree >= 0 {
		problem.Degree = opts.degree
	}

	seed, err := strconv.ParseUint(opts.seed, 0, 64)
	if err != nil {
		return fmt.Errorf("invalid seed %q: %w", opts.seed, err)
	}
	swarmOpts := curvefit.SwarmOptions{
		Particles:  opts.particles,
		Iterations: opts.iterations,
		Seed:       seed,
		Refine:     opts.refine,
	}

	logger.Info("Fitting", map[string]interface{}{
		"dataset": ds.Name,
		"samples": len(problem.X),
		"degree":  problem.Degree,
		"method":  opts.method,
	})

	fitter := curvefit.NewFitter(curvefit.WithLogger(logging.NewZapLogger(logger)))

	switch opts.method {
	case methodPSO:
		res, err := fitter.Swarm(problem, swarmOpts)
		if err != nil {
			return err
		}
		printFit(stdout, res)
	case methodCompare:
		cmp, err := fitter.Compare(problem, swarmOpts)
		if err != nil {
			return err
		}
		printFit(stdout, cmp.LeastSquares)
		fmt.Fprintln(stdout)
		printFit(stdout, cmp.Swarm)
		fmt.Fprintln(stdout)
		fmt.Fprintf(stdout, "max_coefficient_diff = %.17g\n", cmp.MaxCoefficientDiff)
		fmt.Fprintf(stdout, "qr_diff = %.17g\n", cmp.QRDiff)
	default:
		res, err := fitter.LeastSquares(problem)
		if err != nil {
			return err
		}
		printFit(stdout, res)
	}
	return nil
}

func printFit(w io.Writer, f *curvefit.Fit) {
	fmt.Fprintf(w, "method = %s\n", f.Method)
	for i, c := range f.Coefficients {
		fmt.Fprintf(w, "c%d = %.17g\n", i, c)
	}
	fmt.Fprintf(w, "rss = %.17g\n", f.RSS)
	fmt.Fprintf(w, "r_squared = %.17g\n", f.RSquared)
	if f.Method == curvefit.MethodSwarm {
		fmt.Fprintf(w, "iterations = %d\n", f.Iterations)
		fmt.Fprintf(w, "evaluations = %d\n", f.Evaluations)
		fmt.Fprintf(w, "rejected = %d\n", f.Rejected)
		fmt.Fprintf(w, "refined = %t\n", f.Refined)
	}
}

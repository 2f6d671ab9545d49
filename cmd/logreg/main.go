package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"classgen/internal/common"
	"classgen/internal/dataset"
	"classgen/internal/logreg"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	dataPath string
	logEvery int
	train    logreg.Options
}

func main() {
	var (
		dataPath     = flag.String("data", common.DefaultOutputPath, "Path to a dataset produced by classgen")
		epochs       = flag.Int("epochs", logreg.DefaultEpochs, "Training epochs")
		learningRate = flag.Float64("lr", logreg.DefaultLearningRate, "SGD learning rate")
		logEvery     = flag.Int("log-every", 100, "Log the mean loss every N epochs (0 disables)")
		logLevel     = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options{
		dataPath: *dataPath,
		logEvery: *logEvery,
		train:    logreg.Options{Epochs: *epochs, LearningRate: *learningRate},
	}
	if err := run(ctx, opts, os.Stdout); err != nil {
		stop()
		log.Fatal().Err(err).Str("data", *dataPath).Msg("Training failed")
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	m, err := dataset.Load(opts.dataPath)
	if err != nil {
		return err
	}
	X, y, err := dataset.Split(m)
	if err != nil {
		return err
	}
	rows, features := X.Dims()
	log.Info().
		Str("data", opts.dataPath).
		Int("rows", rows).
		Int("features", features).
		Int("epochs", opts.train.Epochs).
		Float64("lr", opts.train.LearningRate).
		Msg("Training logistic regression")

	model, losses, err := logreg.Train(ctx, X, y, opts.train)
	if err != nil {
		return err
	}
	if opts.logEvery > 0 {
		for epoch, loss := range losses {
			if (epoch+1)%opts.logEvery == 0 || epoch == 0 {
				log.Info().Int("epoch", epoch+1).Float64("loss", loss).Msg("Epoch")
			}
		}
	}

	acc, err := model.Accuracy(X, y)
	if err != nil {
		return err
	}

	weights := make([]string, len(model.Weights))
	for i, w := range model.Weights {
		weights[i] = strconv.FormatFloat(w, 'g', -1, 64)
	}
	fmt.Fprintln(out, "=== Logistic Regression ===")
	fmt.Fprintf(out, "Weights: %s\n", strings.Join(weights, ", "))
	fmt.Fprintf(out, "Bias: %s\n", strconv.FormatFloat(model.Bias, 'g', -1, 64))
	fmt.Fprintf(out, "Final Loss: %.6f\n", losses[len(losses)-1])
	fmt.Fprintf(out, "Training Accuracy: %.2f%%\n", acc*100)
	fmt.Fprintln(out, "===========================")
	return nil
}

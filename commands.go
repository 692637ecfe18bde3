package main

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"amrnet/data"
	"amrnet/neuralnet"
	"amrnet/trainer"
)

func loadConfig(path string) (trainer.Config, error) {
	if path == "" {
		return trainer.DefaultConfig(), nil
	}
	return trainer.LoadConfig(path)
}

func trainCmd() *cobra.Command {
	var (
		configPath string
		override   trainer.Config
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "train a MIC predictor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("data-dir") {
				cfg.DataDir = override.DataDir
			}
			if flags.Changed("k") {
				cfg.K = override.K
			}
			if flags.Changed("epochs") {
				cfg.Epochs = override.Epochs
			}
			if flags.Changed("seed") {
				cfg.Seed = override.Seed
			}
			if flags.Changed("drug") {
				cfg.Drug = override.Drug
			}
			if flags.Changed("summary") {
				cfg.SummaryFile = override.SummaryFile
			}
			if flags.Changed("plots") {
				cfg.PlotDir = override.PlotDir
			}
			if flags.Changed("checkpoint") {
				cfg.CheckpointDir = override.CheckpointDir
			}

			t, err := trainer.New(cfg, logger)
			if err != nil {
				return err
			}
			_, err = t.Run(cmd.Context())
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML training config")
	f.StringVar(&override.DataDir, "data-dir", "", "directory holding the .npy and metadata files")
	f.IntVar(&override.K, "k", 0, "use <k>_convolved_*_features.npy")
	f.IntVar(&override.Epochs, "epochs", 0, "number of epochs")
	f.Int64Var(&override.Seed, "seed", 0, "seed for initialisation, shuffling and dropout")
	f.StringVar(&override.Drug, "drug", "", "drug code for R/S calls (azm, cfx, cip, cro)")
	f.StringVar(&override.SummaryFile, "summary", "", "append epoch results to this TSV file")
	f.StringVar(&override.PlotDir, "plots", "", "write loss and accuracy plots here")
	f.StringVar(&override.CheckpointDir, "checkpoint", "", "save the trained model here")
	return cmd
}

func predictCmd() *cobra.Command {
	var checkpointDir, dataDir, featuresPath, out string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "predict log2 MIC and R/S calls with a trained model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ckpt, model, err := trainer.LoadCheckpoint(checkpointDir)
			if err != nil {
				return err
			}

			var split *data.Split
			var isolates []string
			switch {
			case featuresPath != "":
				features, err := data.ReadNpy(featuresPath)
				if err != nil {
					return err
				}
				split = &data.Split{Features: features, Convolved: ckpt.Config.K > 0}
			default:
				if dataDir == "" {
					dataDir = ckpt.Config.DataDir
				}
				if split, err = data.LoadTestingData(dataDir, ckpt.Config.K); err != nil {
					return err
				}
				if _, testing, err := data.LoadMetadata(dataDir); err == nil {
					for _, m := range testing {
						isolates = append(isolates, m.Isolate)
					}
				} else {
					logger.Debug("no metadata, predictions are unlabelled", zap.Error(err))
				}
			}

			preds, err := ckpt.Predict(model, split, isolates)
			if err != nil {
				return err
			}
			if err := trainer.WritePredictions(out, preds); err != nil {
				return err
			}
			logger.Info("predictions written", zap.String("path", out), zap.Int("count", len(preds)))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&checkpointDir, "checkpoint", "", "directory written by train --checkpoint")
	f.StringVar(&dataDir, "data-dir", "", "predict on testing_features.npy from this directory (default: the training data dir)")
	f.StringVar(&featuresPath, "features", "", "predict on this samples x nodes .npy file instead")
	f.StringVarP(&out, "out", "o", "predictions.csv", "output CSV")
	cmd.MarkFlagRequired("checkpoint")
	return cmd
}

func gradcheckCmd() *cobra.Command {
	var (
		configPath string
		inputs     int
		tolerance  float64
	)
	cmd := &cobra.Command{
		Use:   "gradcheck",
		Short: "compare backpropagation against finite differences for the configured architecture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			diff, err := checkGradients(cfg, inputs)
			if err != nil {
				return err
			}
			logger.Info("gradient check", zap.Float64("max_abs_diff", diff), zap.Float64("tolerance", tolerance))
			if diff > tolerance {
				return errors.Errorf("gradient check failed: max difference %g > %g", diff, tolerance)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML training config")
	f.IntVar(&inputs, "inputs", 16, "number of input nodes")
	f.Float64Var(&tolerance, "tolerance", 1e-4, "largest accepted absolute difference")
	return cmd
}

// checkGradients builds the configured architecture over inputs nodes and
// returns the largest backprop/finite-difference disagreement on one
// random sample.
func checkGradients(cfg trainer.Config, inputs int) (float64, error) {
	if inputs <= 0 {
		return 0, errors.Errorf("inputs must be positive, got %d", inputs)
	}
	if err := cfg.ValidateModel(); err != nil {
		return 0, errors.Wrap(err, "invalid config")
	}
	activation, err := neuralnet.ActivationByName(cfg.Activation)
	if err != nil {
		return 0, err
	}
	model := neuralnet.NewMICPredictor(inputs, cfg.Hidden1, cfg.Hidden2, cfg.OutDim, cfg.Params(),
		activation, neuralnet.NewLeakyReLU(neuralnet.DefaultLeakySlope))
	model.InitialiseWeightsAndBiases(cfg.Seed)

	rng := rand.New(rand.NewSource(cfg.Seed))
	x := make([]float64, inputs)
	for i := range x {
		x[i] = rng.Float64()
	}
	return neuralnet.CheckGradients(model, x, rng.NormFloat64()), nil
}

package neuralnet

import "math"

// Params holds the optimisation hyper-parameters shared by the predictor and
// the adversary.
type Params struct {
	Lr                  float64
	Decay               float64
	L2                  float64
	MomentumCoefficient float64
	DropoutRate         float64

	// Learning-rate schedule. Steps are counted in epochs by the trainer.
	InitialLr   float64
	TargetLr    float64
	WarmupSteps int
	DecaySteps  int
	LrSchedule  string // "cosine", "exponential" or "none"
}

func NewParams(learningRate float64) Params {
	return NewParamsFull(learningRate, 1, 0, 0, 0)
}

func NewParamsFull(learningRate, decay, regularization, momentumCoefficient, dropoutRate float64) Params {
	return Params{
		Lr:                  learningRate,
		Decay:               decay,
		L2:                  regularization,
		MomentumCoefficient: momentumCoefficient,
		DropoutRate:         dropoutRate,
		InitialLr:           learningRate,
		TargetLr:            learningRate,
		LrSchedule:          "none",
	}
}

// LearningRateAt returns the scheduled learning rate for a global step.
func (p *Params) LearningRateAt(step, totalSteps int) float64 {
	return calculateCurrentLr(p, step, totalSteps)
}

func calculateCurrentLr(p *Params, currentGlobalStep, totalTrainingSteps int) float64 {
	if p.WarmupSteps > 0 && currentGlobalStep < p.WarmupSteps {
		frac := float64(currentGlobalStep) / float64(p.WarmupSteps)
		return p.InitialLr + (p.TargetLr-p.InitialLr)*frac
	}
	stepAfterWarmup := currentGlobalStep - p.WarmupSteps

	switch p.LrSchedule {
	case "cosine":
		decaySteps := p.DecaySteps
		if decaySteps <= 0 {
			decaySteps = totalTrainingSteps - p.WarmupSteps
		}
		if decaySteps <= 0 {
			return p.TargetLr
		}
		cosineFrac := math.Min(float64(stepAfterWarmup)/float64(decaySteps), 1.0)
		return p.TargetLr * 0.5 * (1 + math.Cos(math.Pi*cosineFrac))
	case "exponential":
		if p.Decay > 0 && p.Decay < 1 {
			return p.TargetLr * math.Pow(p.Decay, float64(stepAfterWarmup))
		}
		return p.TargetLr
	default:
		return p.TargetLr
	}
}

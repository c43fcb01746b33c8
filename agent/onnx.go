package agent

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/brensch/snakegym/env"
	ort "github.com/yalue/onnxruntime_go"
)

// Tensor names of the exported actor-critic model.
const (
	OnnxInputName  = "input"
	OnnxPolicyName = "output"
	OnnxCriticName = "critic"
)

var ortInitOnce sync.Once
var ortInitErr error

func initRuntime() error {
	ortInitOnce.Do(func() {
		if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// OnnxPolicy runs an actor-critic network exported to ONNX. The actor head is
// a softmax over the four actions; Act samples from it.
type OnnxPolicy struct {
	session *ort.DynamicAdvancedSession
	obsSize int

	mu  sync.Mutex
	rng *rand.Rand
}

func NewOnnxPolicy(modelPath string, obsSize int, seed int64) (*OnnxPolicy, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("onnx policy: model path is required")
	}
	if obsSize <= 0 {
		return nil, fmt.Errorf("onnx policy: observation size %d", obsSize)
	}
	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("failed to init ort: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}
	defer options.Destroy()
	// One env per worker already saturates cores.
	_ = options.SetIntraOpNumThreads(1)
	_ = options.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{OnnxInputName},
		[]string{OnnxPolicyName, OnnxCriticName},
		options)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &OnnxPolicy{
		session: session,
		obsSize: obsSize,
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

func (p *OnnxPolicy) Name() string { return "onnx" }

func (p *OnnxPolicy) Close() error {
	return p.session.Destroy()
}

// Evaluate returns the action probabilities and the critic's value estimate.
func (p *OnnxPolicy) Evaluate(obs []float32) ([]float32, float32, error) {
	if len(obs) != p.obsSize {
		return nil, 0, fmt.Errorf("observation length %d, model expects %d", len(obs), p.obsSize)
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(p.obsSize)), append([]float32(nil), obs...))
	if err != nil {
		return nil, 0, err
	}
	defer input.Destroy()

	policy, err := ort.NewEmptyTensor[float32](ort.NewShape(1, env.NumActions))
	if err != nil {
		return nil, 0, err
	}
	defer policy.Destroy()

	critic, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		return nil, 0, err
	}
	defer critic.Destroy()

	if err := p.session.Run([]ort.Value{input}, []ort.Value{policy, critic}); err != nil {
		return nil, 0, fmt.Errorf("run session: %w", err)
	}

	probs := make([]float32, env.NumActions)
	copy(probs, policy.GetData())
	return probs, critic.GetData()[0], nil
}

func (p *OnnxPolicy) Act(ctx context.Context, obs []float32) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	probs, _, err := p.Evaluate(obs)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return SampleAction(probs, p.rng), nil
}

// SampleAction draws an index from probs. Probabilities need not sum to one;
// a degenerate distribution falls back to the most likely action.
func SampleAction(probs []float32, rng *rand.Rand) int {
	var total float64
	for _, p := range probs {
		if p > 0 {
			total += float64(p)
		}
	}
	if total <= 0 {
		return argmax(probs)
	}

	r := rng.Float64() * total
	for i, p := range probs {
		if p <= 0 {
			continue
		}
		r -= float64(p)
		if r < 0 {
			return i
		}
	}
	return argmax(probs)
}

func argmax(xs []float32) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}

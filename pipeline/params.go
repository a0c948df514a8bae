package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/Capstone-NovoCert/novo/errors"
)

// Params is the input record of an execution. The set of implementations is
// closed: DecoyParams, DenovoParams and StageParams.
type Params interface {
	PipelineType() Type
	// Validate checks the fields without touching the filesystem
	Validate() error
	cloneParams() Params
}

// DecoyParams are the inputs of a decoy spectra generation run. Values are
// kept as entered so an invalid submission is recorded verbatim.
type DecoyParams struct {
	InputDir           string `json:"input_dir"`
	OutputDir          string `json:"output_dir"`
	PrecursorTolerance string `json:"precursor_tolerance"`
	RandomSeed         string `json:"random_seed"`
	Memory             string `json:"memory"` // JVM heap in GiB
}

func (p *DecoyParams) PipelineType() Type { return TypeDecoy }

func (p *DecoyParams) Validate() error {
	v := &ValidationError{}
	requireNonEmpty(v, "input_dir", p.InputDir)
	requireNonEmpty(v, "output_dir", p.OutputDir)
	requireNumber(v, "precursor_tolerance", p.PrecursorTolerance)
	requireNumber(v, "random_seed", p.RandomSeed)
	requirePositiveInt(v, "memory", p.Memory)
	return v.OrNil()
}

func (p *DecoyParams) cloneParams() Params {
	c := *p
	return &c
}

// DenovoParams are the inputs of a de novo sequencing run
type DenovoParams struct {
	TargetSpectraDir  string `json:"target_spectra_dir"`
	DecoySpectraDir   string `json:"decoy_spectra_dir"`
	CasanovoYAMLPath  string `json:"casanovo_yaml_path"`
	CasanovoModelPath string `json:"casanovo_model_path"`
}

func (p *DenovoParams) PipelineType() Type { return TypeDenovo }

func (p *DenovoParams) Validate() error {
	v := &ValidationError{}
	requireNonEmpty(v, "target_spectra_dir", p.TargetSpectraDir)
	requireNonEmpty(v, "decoy_spectra_dir", p.DecoySpectraDir)
	requireNonEmpty(v, "casanovo_yaml_path", p.CasanovoYAMLPath)
	requireNonEmpty(v, "casanovo_model_path", p.CasanovoModelPath)
	return v.OrNil()
}

func (p *DenovoParams) cloneParams() Params {
	c := *p
	return &c
}

// StageParams hold free-form inputs for the reserved stages, which have no
// tool yet. Stage is carried by the owning execution, not serialized.
type StageParams struct {
	Stage  Type              `json:"-"`
	Values map[string]string `json:"-"`
}

func (p *StageParams) PipelineType() Type { return p.Stage }

// Validate accepts anything; the controller rejects reserved stages itself
func (p *StageParams) Validate() error { return nil }

func (p *StageParams) cloneParams() Params {
	c := &StageParams{Stage: p.Stage, Values: make(map[string]string, len(p.Values))}
	for k, v := range p.Values {
		c.Values[k] = v
	}
	return c
}

func (p *StageParams) MarshalJSON() ([]byte, error) {
	if p.Values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Values)
}

func (p *StageParams) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &p.Values)
}

// NewParams returns an empty Params for t
func NewParams(t Type) (Params, error) {
	switch t {
	case TypeDecoy:
		return &DecoyParams{}, nil
	case TypeDenovo:
		return &DenovoParams{}, nil
	default:
		if !t.Valid() {
			return nil, errors.NewInvalidRequestError("unknown pipeline type %q", t)
		}
		return &StageParams{Stage: t, Values: map[string]string{}}, nil
	}
}

// DecodeParams decodes raw JSON into the Params variant for t. Empty input
// yields an empty variant.
func DecodeParams(t Type, raw json.RawMessage) (Params, error) {
	p, err := NewParams(t)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return p, nil
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s params", t)
	}
	return p, nil
}

// ParamsFromMap builds the Params variant for t from flat key/value input,
// keyed by the JSON field names (input_dir, memory, ...).
func ParamsFromMap(t Type, values map[string]string) (Params, error) {
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode params")
	}
	return DecodeParams(t, raw)
}

// ParamsToMap flattens p back to its JSON field names
func ParamsToMap(p Params) (map[string]string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode params")
	}
	out := map[string]string{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "failed to flatten params")
	}
	return out, nil
}

// Package conf holds the process-wide matRad configuration: verbosity and
// capture flags for the logging dispatcher, and the default parameter groups
// read by the dose calculation, optimization and Monte-Carlo modules.
package conf

import (
	"gopkg.in/yaml.v3"

	"github.com/Copani/matRad/internal/errors"
)

// StfDefaults are the steering-file generation defaults.
type StfDefaults struct {
	LongitudinalSpotSpacing float64 `yaml:"defaultLongitudinalSpotSpacing" toml:"defaultLongitudinalSpotSpacing" json:"defaultLongitudinalSpotSpacing" validate:"gt=0"` // mm
	AddMargin               bool    `yaml:"defaultAddMargin" toml:"defaultAddMargin" json:"defaultAddMargin"`
}

// Resolution is a dose grid spacing in mm.
type Resolution struct {
	X float64 `yaml:"x" toml:"x" json:"x" validate:"gt=0"`
	Y float64 `yaml:"y" toml:"y" json:"y" validate:"gt=0"`
	Z float64 `yaml:"z" toml:"z" json:"z" validate:"gt=0"`
}

// DoseCalcDefaults are the dose calculation defaults.
type DoseCalcDefaults struct {
	Resolution                    Resolution `yaml:"defaultResolution" toml:"defaultResolution" json:"defaultResolution"`
	LateralCutOff                 float64    `yaml:"defaultLateralCutOff" toml:"defaultLateralCutOff" json:"defaultLateralCutOff" validate:"gt=0,lte=1"`
	GeometricCutOff               float64    `yaml:"defaultGeometricCutOff" toml:"defaultGeometricCutOff" json:"defaultGeometricCutOff" validate:"gt=0"` // mm
	SSDDensityThreshold           float64    `yaml:"defaultSsdDensityThreshold" toml:"defaultSsdDensityThreshold" json:"defaultSsdDensityThreshold" validate:"gte=0"`
	UseGivenEqDensityCube         bool       `yaml:"defaultUseGivenEqDensityCube" toml:"defaultUseGivenEqDensityCube" json:"defaultUseGivenEqDensityCube"`
	IgnoreOutsideDensities        bool       `yaml:"defaultIgnoreOutsideDensities" toml:"defaultIgnoreOutsideDensities" json:"defaultIgnoreOutsideDensities"`
	UseCustomPrimaryPhotonFluence bool       `yaml:"defaultUseCustomPrimaryPhotonFluence" toml:"defaultUseCustomPrimaryPhotonFluence" json:"defaultUseCustomPrimaryPhotonFluence"`
}

// OptimizationDefaults are the fluence optimization defaults.
type OptimizationDefaults struct {
	MaxIterations int    `yaml:"defaultMaxIter" toml:"defaultMaxIter" json:"defaultMaxIter" validate:"gte=1"`
	Optimizer     string `yaml:"optimizer" toml:"optimizer" json:"optimizer" validate:"required"`
	RunDAO        bool   `yaml:"defaultRunDAO" toml:"defaultRunDAO" json:"defaultRunDAO"`
	RunSequencing bool   `yaml:"defaultRunSequencing" toml:"defaultRunSequencing" json:"defaultRunSequencing"`
}

// MonteCarloDefaults are the Monte-Carlo engine defaults.
type MonteCarloDefaults struct {
	PhotonEngine        string `yaml:"defaultPhotonEngine" toml:"defaultPhotonEngine" json:"defaultPhotonEngine" validate:"required"`
	ParticleEngine      string `yaml:"defaultParticleEngine" toml:"defaultParticleEngine" json:"defaultParticleEngine" validate:"required"`
	OmpMCHistories      int64  `yaml:"ompMC_defaultHistories" toml:"ompMC_defaultHistories" json:"ompMC_defaultHistories" validate:"gte=1"`
	OmpMCOutputVariance bool   `yaml:"ompMC_defaultOutputVariance" toml:"ompMC_defaultOutputVariance" json:"ompMC_defaultOutputVariance"`
	MCsquareHistories   int64  `yaml:"MCsquare_defaultHistories" toml:"MCsquare_defaultHistories" json:"MCsquare_defaultHistories" validate:"gte=1"`
	DirectHistories     int64  `yaml:"direct_defaultHistories" toml:"direct_defaultHistories" json:"direct_defaultHistories" validate:"gte=1"`
	ParticleHistories   int64  `yaml:"particles_defaultHistories" toml:"particles_defaultHistories" json:"particles_defaultHistories" validate:"gte=1"`
}

// Defaults groups the parameter sets consumed by the computation modules.
type Defaults struct {
	Stf          StfDefaults          `yaml:"propStf" toml:"propStf" json:"propStf"`
	DoseCalc     DoseCalcDefaults     `yaml:"propDoseCalc" toml:"propDoseCalc" json:"propDoseCalc"`
	Optimization OptimizationDefaults `yaml:"propOpt" toml:"propOpt" json:"propOpt"`
	MonteCarlo   MonteCarloDefaults   `yaml:"propMC" toml:"propMC" json:"propMC"`
}

// Settings is the persisted form of a Config.
type Settings struct {
	Version    string `yaml:"matRad_version" toml:"matRad_version" json:"matRad_version"`
	LogLevel   int    `yaml:"logLevel" toml:"logLevel" json:"logLevel" validate:"min=1,max=5"`
	KeepLog    bool   `yaml:"keepLog" toml:"keepLog" json:"keepLog"`
	WriteLog   bool   `yaml:"writeLog" toml:"writeLog" json:"writeLog"`
	DisableGUI bool   `yaml:"disableGUI" toml:"disableGUI" json:"disableGUI"`
	Defaults   `yaml:",inline"`
}

// versionKey is the snapshot key holding the schema version.
const versionKey = "matRad_version"

// Snapshot is an untyped persisted configuration, possibly written by an
// older or newer schema.
type Snapshot map[string]any

// ToSnapshot converts s into its untyped persisted form.
func (s *Settings) ToSnapshot() (Snapshot, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryState).
			Context("operation", "encode_snapshot").
			Build()
	}
	snapshot := Snapshot{}
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.New(err).
			Component("configuration").
			Category(errors.CategoryFileParsing).
			Context("operation", "decode_snapshot").
			Build()
	}
	return snapshot, nil
}

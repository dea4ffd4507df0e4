package conf

import (
	"github.com/Copani/matRad/internal/logger"
)

// Profile names a complete assignment of the default groups.
type Profile string

const (
	// ProfileProduction holds realistic computation parameters.
	ProfileProduction Profile = "production"
	// ProfileTesting coarsens everything to keep automated runs cheap.
	ProfileTesting Profile = "testing"
)

// Profiles lists the known profiles.
var Profiles = []Profile{ProfileProduction, ProfileTesting}

// ProfileValues is everything a profile assigns. Capture flags are not part
// of a profile.
type ProfileValues struct {
	LogLevel   logger.Level
	DisableGUI bool
	Defaults   Defaults
}

// Lookup returns the values of p.
func (p Profile) Lookup() (ProfileValues, bool) {
	switch p {
	case ProfileProduction:
		return productionValues(), true
	case ProfileTesting:
		return testingValues(), true
	default:
		return ProfileValues{}, false
	}
}

func productionValues() ProfileValues {
	return ProfileValues{
		LogLevel:   logger.LevelInfo,
		DisableGUI: false,
		Defaults: Defaults{
			Stf: StfDefaults{
				LongitudinalSpotSpacing: 2,
				AddMargin:               true,
			},
			DoseCalc: DoseCalcDefaults{
				Resolution:                    Resolution{X: 3, Y: 3, Z: 3},
				LateralCutOff:                 0.995,
				GeometricCutOff:               50,
				SSDDensityThreshold:           0.05,
				UseGivenEqDensityCube:         false,
				IgnoreOutsideDensities:        true,
				UseCustomPrimaryPhotonFluence: false,
			},
			Optimization: OptimizationDefaults{
				MaxIterations: 500,
				Optimizer:     "IPOPT",
				RunDAO:        false,
				RunSequencing: false,
			},
			MonteCarlo: MonteCarloDefaults{
				PhotonEngine:        "ompMC",
				ParticleEngine:      "MCsquare",
				OmpMCHistories:      1e6,
				OmpMCOutputVariance: false,
				MCsquareHistories:   1e6,
				DirectHistories:     2e4,
				ParticleHistories:   2e4,
			},
		},
	}
}

// testingValues starts from production and coarsens the expensive knobs.
func testingValues() ProfileValues {
	v := productionValues()
	v.LogLevel = logger.LevelError
	v.DisableGUI = true

	v.Defaults.Stf.LongitudinalSpotSpacing = 20
	v.Defaults.DoseCalc.Resolution = Resolution{X: 5, Y: 6, Z: 7}
	v.Defaults.DoseCalc.LateralCutOff = 0.8
	v.Defaults.DoseCalc.GeometricCutOff = 20
	v.Defaults.Optimization.MaxIterations = 10

	const testingHistories = 100
	v.Defaults.MonteCarlo.OmpMCHistories = testingHistories
	v.Defaults.MonteCarlo.MCsquareHistories = testingHistories
	v.Defaults.MonteCarlo.DirectHistories = testingHistories
	v.Defaults.MonteCarlo.ParticleHistories = testingHistories
	return v
}

package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampler_FullRateKeepsEverything(t *testing.T) {
	sampler := NewSampler(1.0)

	for i := 0; i < 100; i++ {
		assert.True(t, sampler.ShouldSample(ActionConsentChecked))
	}
}

func TestSampler_ZeroRateDropsEverything(t *testing.T) {
	sampler := NewSampler(0)

	for i := 0; i < 100; i++ {
		assert.False(t, sampler.ShouldSample(ActionConsentChecked))
	}
}

func TestSampler_PerActionOverride(t *testing.T) {
	sampler := NewSampler(0)
	sampler.SetRate(ActionResourceAccessed, 1.0)

	assert.True(t, sampler.ShouldSample(ActionResourceAccessed))
	assert.False(t, sampler.ShouldSample(ActionConsentChecked))
}

func TestSampler_ClampsRates(t *testing.T) {
	sampler := NewSampler(5.0)
	assert.True(t, sampler.ShouldSample(ActionConsentChecked))

	sampler.SetRate(ActionConsentChecked, -1.0)
	assert.False(t, sampler.ShouldSample(ActionConsentChecked))
}

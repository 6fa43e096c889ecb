package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/aegis-edge/internal/contracts"
)

func TestMaskPassword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://edge:s3cret@db:5432/market", "postgres://edge:xxxxx@db:5432/market"},
		{"postgres://edge@db:5432/market", "postgres://edge@db:5432/market"},
		{"postgres://db/market?sslmode=disable", "postgres://db/market?sslmode=disable"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, maskPassword(tt.in))
	}
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "$100,000.00", money(100000))
	assert.Equal(t, "198.50", price(198.5))
	assert.Equal(t, "1,500", contractsCount(1500))
	assert.Equal(t, "n/a", measure(contracts.Measure{Reason: "short history"}))
	assert.Equal(t, "2.4500", measure(contracts.KnownMeasure(2.45)))
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"evaluate", "size", "scan", "fetch", "api", "scheduler", "test-db"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if assert.NoError(t, err, name) {
			assert.Equal(t, name, cmd.Name())
		}
	}
}

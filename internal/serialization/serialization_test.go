package serialization

import (
	"testing"
	"time"

	"github.com/yusing/chunkstream/internal/gperr"
	expect "github.com/yusing/chunkstream/internal/utils/testing"
)

type testConfig struct {
	Name    string        `json:"name" validate:"required"`
	Ports   []int         `json:"ports" validate:"dive,min=1,max=65535"`
	Timeout time.Duration `json:"timeout" validate:"gte=0"`
	Mode    string        `json:"mode" validate:"omitempty,oneof=a b"`
}

var errModeB = gperr.New("mode b needs a name starting with b")

func (c *testConfig) Validate() gperr.Error {
	if c.Mode == "b" && c.Name[0] != 'b' {
		return errModeB
	}
	return nil
}

func TestUnmarshalKeepsDefaults(t *testing.T) {
	cfg := &testConfig{Name: "default", Timeout: time.Second}
	expect.NoError(t, UnmarshalYAML([]byte("ports: [80, 443]\n"), cfg))
	expect.NoError(t, Validate(cfg))
	expect.Equal(t, cfg.Name, "default")
	expect.Equal(t, cfg.Ports, []int{80, 443})
	expect.Equal(t, cfg.Timeout, time.Second)
}

func TestUnmarshalDuration(t *testing.T) {
	var cfg testConfig
	expect.NoError(t, UnmarshalYAML([]byte("timeout: 1m30s\n"), &cfg))
	expect.Equal(t, cfg.Timeout, 90*time.Second)
}

func TestUnmarshalUnknownField(t *testing.T) {
	var cfg testConfig
	err := UnmarshalYAML([]byte("name: x\nbogus: 1\n"), &cfg)
	expect.ErrorIs(t, ErrUnmarshal, err)
	expect.ErrorContains(t, err, "bogus")
}

func TestValidateFieldTags(t *testing.T) {
	cfg := &testConfig{Ports: []int{80, 70000}, Mode: "c"}
	err := Validate(cfg)
	expect.ErrorIs(t, ErrValidationError, err)
	expect.ErrorContains(t, err, "testConfig.Name")
	expect.ErrorContains(t, err, "testConfig.Ports[1]")
	expect.ErrorContains(t, err, `require "max:65535"`)
	expect.ErrorContains(t, err, `require "oneof:a b"`)
}

func TestValidateCustom(t *testing.T) {
	cfg := &testConfig{Name: "alice", Mode: "b"}
	expect.ErrorIs(t, errModeB, Validate(cfg))

	cfg.Name = "bob"
	expect.NoError(t, Validate(cfg))
}

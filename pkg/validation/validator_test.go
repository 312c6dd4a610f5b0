package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := ValidationError{
		Field:   "name",
		Value:   "",
		Message: "field is required",
	}

	expected := "validation error on field 'name': field is required (got: )"
	assert.Equal(t, expected, err.Error())
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "name", Value: "", Message: "field is required"},
		{Field: "limit", Value: -1, Message: "must be positive"},
	}

	expected := "validation error on field 'name': field is required (got: ); validation error on field 'limit': must be positive (got: -1)"
	assert.Equal(t, expected, errs.Error())
	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
}

type runConfig struct {
	Name     string `yaml:"name" validate:"actor_name"`
	Limit    int    `yaml:"limit" validate:"gte=0"`
	Listen   string `yaml:"listen" validate:"omitempty,hostname_port"`
	LogLevel string `yaml:"log_level" validate:"log_level"`
	Rate     int    `json:"rate" validate:"min=1"`
	custom   error
}

func (c runConfig) Validate() error { return c.custom }

func TestStruct(t *testing.T) {
	valid := runConfig{Name: "sampler-1", Limit: 10, Listen: "127.0.0.1:9000", LogLevel: "debug", Rate: 2}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, Struct(valid))
	})

	t.Run("field errors use tag names", func(t *testing.T) {
		c := valid
		c.Name = "bad name!"
		c.Limit = -1
		c.Rate = 0
		err := Struct(c)
		require.Error(t, err)

		var verrs ValidationErrors
		require.True(t, errors.As(err, &verrs))
		require.Len(t, verrs, 3)
		assert.Equal(t, "runConfig.name", verrs[0].Field)
		assert.Contains(t, verrs[0].Message, "actor name")
		assert.Equal(t, "runConfig.limit", verrs[1].Field)
		assert.Equal(t, "minimum value/length is 0", verrs[1].Message)
		assert.Equal(t, "runConfig.rate", verrs[2].Field)
	})

	t.Run("listen address", func(t *testing.T) {
		c := valid
		c.Listen = "nope"
		assert.ErrorContains(t, Struct(c), "host:port")
	})

	t.Run("log level", func(t *testing.T) {
		c := valid
		c.LogLevel = "verbose"
		assert.ErrorContains(t, Struct(c), "log level")
	})

	t.Run("custom Validate runs after tags", func(t *testing.T) {
		c := valid
		c.custom = errors.New("rate exceeds limit")
		assert.EqualError(t, Struct(c), "rate exceeds limit")
	})

	t.Run("not a struct", func(t *testing.T) {
		assert.Error(t, Struct(42))
	})
}

func TestListenAddr(t *testing.T) {
	type listener struct {
		Addr string `yaml:"addr" validate:"listen_addr"`
	}
	for addr, ok := range map[string]bool{
		"127.0.0.1:0":    true,
		":9090":          true,
		"localhost:8080": true,
		"127.0.0.1":      false,
		"host:99999":     false,
		"host:http":      false,
	} {
		t.Run(addr, func(t *testing.T) {
			err := Struct(listener{Addr: addr})
			if ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, "port 0 picks a free one")
			}
		})
	}
}

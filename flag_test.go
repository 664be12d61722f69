package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var flagParseErrorTests = []struct {
	in     string
	flag   string
	reason string
}{
	{
		"unknown flag: --nope",
		"--nope",
		"Flag %s is missing.",
	},
	{
		"flag needs an argument: --continue",
		"--continue",
		"Flag %s needs an argument.",
	},
	{
		"flag needs an argument: 'c' in -c",
		"-c",
		"Flag %s needs an argument.",
	},
	{
		"unknown shorthand flag: 'z' in -z",
		"-z",
		"Short flag %s is missing.",
	},
	{
		`invalid argument "20dd" for "--timeout" flag: time: unknown unit "dd" in duration "20dd"`,
		"--timeout",
		"Flag %s have an invalid argument.",
	},
	{
		`invalid argument "sdfjasdl" for "--max-tokens" flag: strconv.ParseInt: parsing "sdfjasdl": invalid syntax`,
		"--max-tokens",
		"Flag %s have an invalid argument.",
	},
	{
		`invalid argument "nope" for "-g, --grounding" flag: strconv.ParseBool: parsing "nope": invalid syntax`,
		"-g, --grounding",
		"Flag %s have an invalid argument.",
	},
	{
		"something else entirely",
		"",
		"something else entirely",
	},
}

func TestFlagParseError(t *testing.T) {
	for _, tf := range flagParseErrorTests {
		t.Run(tf.in, func(t *testing.T) {
			err := newFlagParseError(errors.New(tf.in))
			require.Equal(t, tf.flag, err.Flag())
			require.Equal(t, tf.reason, err.ReasonFormat())
			require.Equal(t, tf.in, err.Error())
		})
	}
}

func TestDurationFlag(t *testing.T) {
	var d time.Duration
	f := newDurationFlag(time.Minute, &d)
	require.Equal(t, time.Minute, d)
	require.Equal(t, "duration", f.Type())

	require.NoError(t, f.Set("2d"))
	require.Equal(t, 48*time.Hour, d)
	require.Equal(t, "48h0m0s", f.String())

	require.Error(t, f.Set("nope"))
}

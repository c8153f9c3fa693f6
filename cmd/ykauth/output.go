package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/ykauth/pkg/otpkey"
)

const maskedSecret = "********************************"

type outputFormat string

const (
	outputText outputFormat = "text"
	outputJSON outputFormat = "json"
	outputYAML outputFormat = "yaml"
)

func parseOutputFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(s)); f {
	case outputText, outputJSON, outputYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q, use text, json or yaml", s)
}

type keyView struct {
	PublicID    string `json:"publicId" yaml:"publicId"`
	Prefix      string `json:"prefix" yaml:"prefix"`
	PrivateID   string `json:"privateId" yaml:"privateId"`
	SecretKey   string `json:"secretKey" yaml:"secretKey"`
	Description string `json:"description" yaml:"description"`
	SysUser     string `json:"sysUser" yaml:"sysUser"`
	Counter     uint16 `json:"counter" yaml:"counter"`
	UseCounter  uint8  `json:"useCounter" yaml:"useCounter"`
	Filename    string `json:"filename" yaml:"filename"`
}

func newKeyView(c *otpkey.KeyConfig, reveal bool) keyView {
	secret := maskedSecret
	if reveal {
		secret = c.SecretKey()
	}
	tok := c.Token()
	return keyView{
		PublicID:    c.PublicID(),
		Prefix:      c.PublicIDModhex(),
		PrivateID:   tok.UIDHex(),
		SecretKey:   secret,
		Description: c.Description(),
		SysUser:     c.SysUser(),
		Counter:     tok.Counter(),
		UseCounter:  tok.Use,
		Filename:    c.Filename(),
	}
}

func writeKeys(w io.Writer, format outputFormat, keys []keyView) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(keys)
	case outputYAML:
		return writeYAML(w, keys)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PUBLIC ID\tPREFIX\tSYS USER\tCOUNTER\tUSE\tDESCRIPTION")
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", k.PublicID, k.Prefix, k.SysUser, k.Counter, k.UseCounter, k.Description)
	}
	return tw.Flush()
}

func writeKey(w io.Writer, format outputFormat, key keyView) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(key)
	case outputYAML:
		return writeYAML(w, key)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Public ID:\t%s\n", key.PublicID)
	fmt.Fprintf(tw, "Prefix:\t%s\n", key.Prefix)
	fmt.Fprintf(tw, "Private ID:\t%s\n", key.PrivateID)
	fmt.Fprintf(tw, "Secret key:\t%s\n", key.SecretKey)
	fmt.Fprintf(tw, "Description:\t%s\n", key.Description)
	fmt.Fprintf(tw, "System user:\t%s\n", key.SysUser)
	fmt.Fprintf(tw, "Counter:\t%d\n", key.Counter)
	fmt.Fprintf(tw, "Use counter:\t%d\n", key.UseCounter)
	fmt.Fprintf(tw, "File:\t%s\n", key.Filename)
	return tw.Flush()
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

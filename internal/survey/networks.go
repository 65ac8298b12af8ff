package survey

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownNetwork is returned by Lookup for an unrecognized key.
var ErrUnknownNetwork = errors.New("unknown social network")

// Network is one social network covered by the survey.
type Network struct {
	Key    string `json:"key"`    // Short code used in file names
	Name   string `json:"name"`   // Display name
	Column string `json:"column"` // Survey column holding usage frequency
	Agents int    `json:"agents"` // Population size for the social simulation
}

// Networks lists the supported networks.
var Networks = []Network{
	{Key: "X", Name: "X (Twitter)", Column: "P21A02", Agents: 371},
	{Key: "IG", Name: "Instagram", Column: "P21A05", Agents: 267},
	{Key: "FB", Name: "Facebook", Column: "P21A01", Agents: 400},
}

var aliases = map[string]string{
	"x":         "X",
	"twitter":   "X",
	"ig":        "IG",
	"instagram": "IG",
	"fb":        "FB",
	"facebook":  "FB",
}

// Lookup finds a network by key or common name, case-insensitively.
func Lookup(key string) (Network, error) {
	k, ok := aliases[strings.ToLower(strings.TrimSpace(key))]
	if ok {
		for _, n := range Networks {
			if n.Key == k {
				return n, nil
			}
		}
	}
	return Network{}, fmt.Errorf("%w: %q (valid: X, IG, FB)", ErrUnknownNetwork, key)
}

// CleanFile is the name of the network's filtered survey workbook.
func (n Network) CleanFile() string {
	return "3145_data_clean_" + n.Key + ".xlsx"
}

// ModelFile is the name of the network's model output workbook.
func (n Network) ModelFile() string {
	return "model_" + n.Key + ".xlsx"
}

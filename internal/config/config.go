// Package config holds the node's configurable parameters, following the
// same Default()/FromEnv() shape the teacher repo uses for its own
// multi-network wallet config.
package config

import (
	"os"
	"strconv"
	"time"
)

// DefaultConsensusRendezvous is the hard-coded rendezvous window the
// upstream Python source sleeps for after broadcasting a consensus
// request before giving up and creating a fresh genesis chain. Preserved
// as a named, configurable constant per SPEC_FULL.md §5.6 — it is unsound
// under real network delays, but changing its default would change
// observed convergence behavior, so it stays 2s unless overridden.
const DefaultConsensusRendezvous = 2 * time.Second

// Config holds all configurable parameters for a node.
type Config struct {
	// Difficulty is the fixed proof-of-work difficulty for the life of
	// the chain.
	Difficulty int

	// BlockReward is the coinbase amount minted per mined block on a chain
	// this node creates itself; an adopted peer chain keeps its own reward.
	BlockReward float64

	// ConsensusRendezvous is how long a node without a chain waits for a
	// consensus_resp after broadcasting consensus before falling back to
	// creating a fresh genesis chain.
	ConsensusRendezvous time.Duration

	// PublishPort is the port the node's publisher binds to.
	PublishPort int

	// BroadcastMaxRetries bounds how many times the node retries a
	// publish before giving up.
	BroadcastMaxRetries int
}

// Default returns a Config populated with the spec's defaults.
func Default() Config {
	return Config{
		Difficulty:          1,
		BlockReward:         50.0,
		ConsensusRendezvous: DefaultConsensusRendezvous,
		PublishPort:         5000,
		BroadcastMaxRetries: 3,
	}
}

// FromEnv returns a Config populated from environment variables, falling
// back to Default's values for unset ones.
func FromEnv() Config {
	cfg := Default()

	if v := os.Getenv("NODE_DIFFICULTY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Difficulty = n
		}
	}
	if v := os.Getenv("NODE_BLOCK_REWARD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.BlockReward = f
		}
	}
	if v := os.Getenv("NODE_CONSENSUS_RENDEZVOUS"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ConsensusRendezvous = d
		}
	}
	if v := os.Getenv("NODE_PUBLISH_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PublishPort = n
		}
	}
	if v := os.Getenv("NODE_BROADCAST_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BroadcastMaxRetries = n
		}
	}

	return cfg
}

package confkit

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables read by LoadLighterEnv.
const (
	EnvAPIKey       = "LIGHTER_API_KEY"
	EnvAccountIndex = "LIGHTER_ACCOUNT_INDEX"
	EnvAPIKeyIndex  = "LIGHTER_API_KEY_INDEX"
	EnvChainID      = "LIGHTER_CHAIN_ID"
	EnvAPIURL       = "LIGHTER_API_URL"
	EnvL1PrivateKey = "LIGHTER_L1_PRIVATE_KEY"
)

// LighterEnv is the signing identity taken from the process environment.
// Unset numeric values are nil so callers can tell them from zero.
type LighterEnv struct {
	APIKey       string
	AccountIndex *int64
	APIKeyIndex  *uint8
	ChainID      *uint32
	APIURL       string
	L1PrivateKey string
}

// LoadLighterEnv reads the LIGHTER_* variables after loading .env.
func LoadLighterEnv() (LighterEnv, error) {
	LoadDotenvOnce()

	var (
		env LighterEnv
		err error
	)
	env.APIKey = EnvString(EnvAPIKey)
	env.APIURL = EnvString(EnvAPIURL)
	env.L1PrivateKey = EnvString(EnvL1PrivateKey)

	if env.AccountIndex, err = EnvInt(EnvAccountIndex, 0, 1<<48-1); err != nil {
		return LighterEnv{}, err
	}
	keyIndex, err := EnvInt(EnvAPIKeyIndex, 0, 255)
	if err != nil {
		return LighterEnv{}, err
	}
	if keyIndex != nil {
		v := uint8(*keyIndex)
		env.APIKeyIndex = &v
	}
	chainID, err := EnvInt(EnvChainID, 0, 1<<32-1)
	if err != nil {
		return LighterEnv{}, err
	}
	if chainID != nil {
		v := uint32(*chainID)
		env.ChainID = &v
	}
	return env, nil
}

// Empty reports whether no variable was set.
func (e LighterEnv) Empty() bool {
	return e.APIKey == "" && e.AccountIndex == nil && e.APIKeyIndex == nil &&
		e.ChainID == nil && e.APIURL == "" && e.L1PrivateKey == ""
}

// EnvString returns the trimmed value of key.
func EnvString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// EnvInt parses key as a base-10 integer within [min, max]. Unset or blank
// values return nil.
func EnvInt(key string, min, max int64) (*int64, error) {
	raw := EnvString(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("env %s: %w", key, err)
	}
	if v < min || v > max {
		return nil, fmt.Errorf("env %s: %d outside [%d, %d]", key, v, min, max)
	}
	return &v, nil
}

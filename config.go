package main

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// PinAssignment ties one machine id to a line on the expander and the logic
// level that activates it: the "pushed" level for momentary button lines,
// the "on" level for relay lines.
type PinAssignment struct {
	Pin   uint8
	Level uint8
}

// Config holds all runtime settings.  Values are read from the environment
// once at startup; every key has a fixed default so the binary runs with no
// environment at all.  Callers must treat the returned Config as immutable.
type Config struct {
	ServerHost string
	ServerPort int

	ButtonPressDelay    time.Duration
	SoftPowerShortPress time.Duration
	SoftPowerLongPress  time.Duration
	HardPowerDelay      time.Duration

	// PowerDefaultState is the value written to the expander's output
	// register at startup.
	PowerDefaultState uint8

	StatePath string
	LogLevel  string
	LogFile   string

	I2CBus     string
	I2CAddress string

	Inputs    map[uint8]PinAssignment
	PowerSoft map[uint8]PinAssignment
	PowerHard map[uint8]PinAssignment
}

// loadConfig reads configuration from the environment, falling back to the
// defaults for any key that is missing or unparseable.
func loadConfig() Config {
	return Config{
		ServerHost:          envString("SERVER_HOST", "0.0.0.0"),
		ServerPort:          envInt("SERVER_PORT", 8000),
		ButtonPressDelay:    envMillis("BUTTON_PRESS_DELAY_MS", 50),
		SoftPowerShortPress: envMillis("SOFT_POWER_SHORT_PRESS_MS", 50),
		SoftPowerLongPress:  envMillis("SOFT_POWER_LONG_PRESS_MS", 120),
		HardPowerDelay:      envMillis("HARD_POWER_DELAY_MS", 50),
		PowerDefaultState:   envByte("POWER_DEFAULT_STATE", 0),
		StatePath:           envString("STATE_STORAGE_PATH", "./state.json"),
		LogLevel:            envString("LOG_LEVEL", "info"),
		LogFile:             envString("LOG_FILE", "stdout"),
		I2CBus:              envString("USB_I2C_BUS", "/dev/i2c-5"),
		I2CAddress:          envString("USB_I2C_ADDRESS", "0x20"),
		Inputs:              envPinMap("INPUT_CONFIG", "1,0,0;2,1,0;3,2,0;4,3,0"),
		PowerSoft:           envPinMap("POWER_SOFT_CONFIG", "1,4,0;2,5,0;3,6,0;4,7,0"),
		PowerHard:           envPinMap("POWER_HARD_CONFIG", "1,8,0;2,9,0;3,10,0;4,11,0"),
	}
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func envByte(key string, def uint8) uint8 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 8); err == nil {
			return uint8(n)
		}
	}
	return def
}

// envMillis reads a duration expressed in milliseconds.  Fractional values
// are accepted.
func envMillis(key string, def float64) time.Duration {
	ms := def
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			ms = f
		}
	}
	return time.Duration(ms * float64(time.Millisecond))
}

func envPinMap(key, def string) map[uint8]PinAssignment {
	return parsePinMap(envString(key, def))
}

// parsePinMap parses the "id,pin,level;id,pin,level;..." pin map format.
// Malformed entries are skipped.  A level other than 0 or 1 falls back to 0.
func parsePinMap(s string) map[uint8]PinAssignment {
	m := make(map[uint8]PinAssignment)
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ",")
		if len(parts) != 3 {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 8)
		if err != nil {
			continue
		}
		pin, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 8)
		if err != nil {
			continue
		}
		level, err := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 8)
		if err != nil || level > 1 {
			level = 0
		}
		m[uint8(id)] = PinAssignment{Pin: uint8(pin), Level: uint8(level)}
	}
	return m
}

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := loadConfig()

	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.Equal(t, 8000, cfg.ServerPort)
	assert.Equal(t, 50*time.Millisecond, cfg.ButtonPressDelay)
	assert.Equal(t, 120*time.Millisecond, cfg.SoftPowerLongPress)
	assert.Equal(t, uint8(0), cfg.PowerDefaultState)
	assert.Equal(t, "./state.json", cfg.StatePath)
	assert.Equal(t, "/dev/i2c-5", cfg.I2CBus)
	assert.Equal(t, "0x20", cfg.I2CAddress)

	// Inputs on lines 0-3, soft power on 4-7, hard power on 8-11.
	require.Len(t, cfg.Inputs, 4)
	assert.Equal(t, PinAssignment{Pin: 1, Level: 0}, cfg.Inputs[2])
	assert.Equal(t, PinAssignment{Pin: 7, Level: 0}, cfg.PowerSoft[4])
	assert.Equal(t, PinAssignment{Pin: 8, Level: 0}, cfg.PowerHard[1])
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("BUTTON_PRESS_DELAY_MS", "12.5")
	t.Setenv("POWER_DEFAULT_STATE", "255")
	t.Setenv("USB_I2C_ADDRESS", "0x27")
	t.Setenv("INPUT_CONFIG", "1,5,1;2,6,1")

	cfg := loadConfig()
	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, "127.0.0.1", cfg.ServerHost)
	assert.Equal(t, 12500*time.Microsecond, cfg.ButtonPressDelay)
	assert.Equal(t, uint8(255), cfg.PowerDefaultState)
	assert.Equal(t, "0x27", cfg.I2CAddress)
	require.Len(t, cfg.Inputs, 2)
	assert.Equal(t, PinAssignment{Pin: 5, Level: 1}, cfg.Inputs[1])
}

func TestLoadConfigUnparseableFallsBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("BUTTON_PRESS_DELAY_MS", "soon")
	t.Setenv("POWER_DEFAULT_STATE", "300")

	cfg := loadConfig()
	assert.Equal(t, 8000, cfg.ServerPort)
	assert.Equal(t, 50*time.Millisecond, cfg.ButtonPressDelay)
	assert.Equal(t, uint8(0), cfg.PowerDefaultState)
}

func TestParsePinMap(t *testing.T) {
	m := parsePinMap("1,0,1; 2,5,0 ;bad;3,4;;4,7,9")

	// "bad" and "3,4" are malformed and skipped; level 9 coerces to 0.
	require.Len(t, m, 3)
	assert.Equal(t, PinAssignment{Pin: 0, Level: 1}, m[1])
	assert.Equal(t, PinAssignment{Pin: 5, Level: 0}, m[2])
	assert.Equal(t, PinAssignment{Pin: 7, Level: 0}, m[4])
}

func TestParsePinMapEmpty(t *testing.T) {
	assert.Empty(t, parsePinMap(""))
	assert.Empty(t, parsePinMap(";;;"))
	assert.Empty(t, parsePinMap("x,y,z"))
}

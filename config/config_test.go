package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "https://auto.ria.com/uk/car/used/", config.StartURL)
	assert.Equal(t, 0, config.MaxPages)
	assert.Equal(t, 10, config.Concurrency)
	assert.Equal(t, "12:00", config.ScrapeRunTime)
	assert.Equal(t, "13:00", config.DumpRunTime)
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, "autoria_listings", config.RedisStream)
	assert.Equal(t, "localhost:11211", config.MemcacheAddr)
	assert.Equal(t, 30*time.Minute, config.RateLimitBlock)
	assert.Equal(t, "./dumps", config.DumpsDir)
	assert.NoError(t, config.Validate())

	// Test with environment variables
	os.Setenv("SCRAPER_START_URL", "https://example.com/cars")
	os.Setenv("SCRAPER_MAX_PAGES", "5")
	os.Setenv("SCRAPER_CONCURRENCY", "3")
	os.Setenv("SCRAPER_RUN_TIME", "03:30")
	os.Setenv("DUMPS_DIR", "/tmp/dumps")

	config = LoadConfig()
	assert.Equal(t, "https://example.com/cars", config.StartURL)
	assert.Equal(t, 5, config.MaxPages)
	assert.Equal(t, 3, config.Concurrency)
	assert.Equal(t, "03:30", config.ScrapeRunTime)
	assert.Equal(t, "/tmp/dumps", config.DumpsDir)
	assert.NoError(t, config.Validate())

	// Clean up
	os.Unsetenv("SCRAPER_START_URL")
	os.Unsetenv("SCRAPER_MAX_PAGES")
	os.Unsetenv("SCRAPER_CONCURRENCY")
	os.Unsetenv("SCRAPER_RUN_TIME")
	os.Unsetenv("DUMPS_DIR")
}

func TestValidate(t *testing.T) {
	base := LoadConfig()

	invalidURL := *base
	invalidURL.StartURL = "not a url"
	assert.Error(t, invalidURL.Validate())

	zeroConcurrency := *base
	zeroConcurrency.Concurrency = 0
	assert.Error(t, zeroConcurrency.Validate())

	negativePages := *base
	negativePages.MaxPages = -1
	assert.Error(t, negativePages.Validate())

	badClock := *base
	badClock.ScrapeRunTime = "25:99"
	assert.Error(t, badClock.Validate())

	emptyDB := *base
	emptyDB.DatabaseURL = ""
	assert.Error(t, emptyDB.Validate())
}

func TestParseClock(t *testing.T) {
	hour, minute, err := ParseClock("12:00")
	assert.NoError(t, err)
	assert.Equal(t, 12, hour)
	assert.Equal(t, 0, minute)

	hour, minute, err = ParseClock("23:59")
	assert.NoError(t, err)
	assert.Equal(t, 23, hour)
	assert.Equal(t, 59, minute)

	_, _, err = ParseClock("noon")
	assert.Error(t, err)
}

package config // package config loads application configuration from environment variables

import (
    "fmt"     // fmt wraps errors with the offending variable name
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strings" // strings trims trailing slashes from URLs
    "time"    // time parses outbound call timeouts
)

// DefaultHubDBBaseURL is the tables collection of the HubDB v2 API.
const DefaultHubDBBaseURL = "https://api.hubapi.com/hubdb/api/v2/tables"

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The value is built once at process start and
// handed to the components that need it; nothing reads the environment
// after Load returns.
type Config struct {
    Env          string        // application environment (e.g. "dev", "prod")
    Port         string        // HTTP port to listen on (cmd/server only)
    LogLevel     string        // slog level name
    APIKey       string        // table service credential, sent as the hapikey query parameter
    TableID      string        // identifier of the table holding the volunteer slots
    HubDBBaseURL string        // base URL of the tables collection
    QtyCellID    string        // cell id of the "quantity available" column
    HubDBTimeout time.Duration // timeout applied to each outbound table service call
}

// Load reads configuration values from environment variables and returns a
// Config.  Missing required variables cause the program to exit with a
// fatal log message.
func Load() Config {
    cfg, err := FromEnv()
    if err != nil {
        log.Fatal(err)
    }
    return cfg
}

// FromEnv is the non-fatal form of Load.  It returns an error wrapping
// ErrMissingEnv when a required variable is absent.
func FromEnv() (Config, error) {
    apiKey, err := required("HUBSPOT_APIKEY")
    if err != nil {
        return Config{}, err
    }
    tableID, err := required("HUBSPOT_TABLE_ID")
    if err != nil {
        return Config{}, err
    }
    return Config{
        Env:          envStr("APP_ENV", "dev"),                                        // environment (dev/test/prod)
        Port:         envStr("APP_PORT", "8080"),                                      // port to bind the HTTP server
        LogLevel:     envStr("LOG_LEVEL", "info"),                                     // log verbosity
        APIKey:       apiKey,                                                          // table service credential
        TableID:      tableID,                                                         // slots table
        HubDBBaseURL: strings.TrimRight(envStr("HUBDB_BASE_URL", DefaultHubDBBaseURL), "/"), // API base
        QtyCellID:    envStr("HUBDB_QTY_CELL_ID", "1"),                                // quantity column
        HubDBTimeout: envDur("HUBDB_TIMEOUT", 10*time.Second),                         // per-call timeout
    }, nil
}

// required retrieves the value of a required environment variable.
func required(key string) (string, error) {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        return "", fmt.Errorf("%w: %s", ErrMissingEnv, key)
    }
    return v, nil
}

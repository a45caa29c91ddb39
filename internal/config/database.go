package config

// DatabaseConfig holds the MySQL settings of the audit trail.  The audit
// trail is optional: Enabled is true only when DB_HOST is set.
type DatabaseConfig struct {
    Enabled bool
    User    string
    Pass    string
    Host    string
    Port    string
    Name    string
}

// LoadDatabaseConfig reads the DB_* variables.
func LoadDatabaseConfig() DatabaseConfig {
    host := envStr("DB_HOST", "")
    return DatabaseConfig{
        Enabled: host != "",
        User:    envStr("DB_USER", "root"),
        Pass:    envStr("DB_PASS", ""),
        Host:    host,
        Port:    envStr("DB_PORT", "3306"),
        Name:    envStr("DB_NAME", "volunteer_slots"),
    }
}

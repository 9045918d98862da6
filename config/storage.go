package config

// RedisConfig contains Redis configuration for the durable credential store.
// When Addr is empty the store degrades to process memory: credentials then
// survive only as long as the process does.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:""`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// Enabled reports whether a durable store is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

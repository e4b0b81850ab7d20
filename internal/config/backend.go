package config

// ConfigBackend abstracts config storage. The default implementation is a
// YAML file read through viper; tests substitute an in-memory backend.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}

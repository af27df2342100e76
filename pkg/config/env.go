package config

// EnvPrefix namespaces every FarmBridge environment variable.
const EnvPrefix = "FARMBRIDGE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "FARMBRIDGE_DB_DSN"
	EnvDBHost = "FARMBRIDGE_DB_HOST"
	EnvDBUser = "FARMBRIDGE_DB_USER"
	EnvDBName = "FARMBRIDGE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

package config

const (
	EnvPrefix = "erpbridge"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ERPBRIDGE_DB_DSN"
	EnvDBHost = "ERPBRIDGE_DB_HOST"
	EnvDBUser = "ERPBRIDGE_DB_USER"
	EnvDBName = "ERPBRIDGE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

package config

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	missingAPIKeyEnvNameErrorMessage = "common.api.api_key_env is not set"
	missingMongoURIEnvNameError      = "common.mongo.uri_env is not set"
	unsetEnvironmentVariableFormat   = "environment variable %s is not set"
)

// Secrets are never stored in the configuration file; the file names the
// environment variables and this resolver reads them.
type EnvironmentResolver struct {
	environment *viper.Viper
}

func NewEnvironmentResolver() EnvironmentResolver {
	environment := viper.New()
	environment.AutomaticEnv()
	return EnvironmentResolver{environment: environment}
}

// APIKey resolves the LLM API key named by the configuration.
func (resolver EnvironmentResolver) APIKey(root Root) (string, error) {
	return resolver.lookup(root.Common.API.APIKeyEnv, missingAPIKeyEnvNameErrorMessage)
}

// MongoURI resolves the storage connection string named by the configuration.
func (resolver EnvironmentResolver) MongoURI(root Root) (string, error) {
	return resolver.lookup(root.Common.Mongo.URIEnv, missingMongoURIEnvNameError)
}

func (resolver EnvironmentResolver) lookup(variableName string, missingNameMessage string) (string, error) {
	if variableName == "" {
		return "", fmt.Errorf("%s", missingNameMessage)
	}
	value := resolver.environment.GetString(variableName)
	if value == "" {
		return "", fmt.Errorf(unsetEnvironmentVariableFormat, variableName)
	}
	return value, nil
}

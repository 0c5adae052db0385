package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretGetter is the subset of the Secrets Manager client used to resolve
// configuration values.
type SecretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// ResolveSecrets overrides the backend URL with the value of
// BackendURLSecretID when one is configured. It is a no-op otherwise.
func (c *Config) ResolveSecrets(ctx context.Context, sm SecretGetter) error {
	if c.BackendURLSecretID == "" {
		return nil
	}

	secret, err := sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(c.BackendURLSecretID),
	})
	if err != nil {
		return fmt.Errorf("failed to read backend url secret %s: %w", c.BackendURLSecretID, err)
	}
	if secret.SecretString == nil || *secret.SecretString == "" {
		return fmt.Errorf("backend url secret %s is empty", c.BackendURLSecretID)
	}

	c.SetBackendURL(*secret.SecretString)
	return nil
}

// LoadWithSecrets is Load followed by ResolveSecrets against the default AWS
// configuration. AWS is only contacted when a secret id is configured.
func LoadWithSecrets(ctx context.Context) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if cfg.BackendURLSecretID == "" {
		return cfg, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	if err := cfg.ResolveSecrets(ctx, secretsmanager.NewFromConfig(awsCfg)); err != nil {
		return nil, err
	}
	return cfg, nil
}

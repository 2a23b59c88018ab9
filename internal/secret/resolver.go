// Package secret provides an abstraction for retrieving secrets from
// different backends (SSM Parameter Store, environment variables, KMS-encrypted
// environment variables).
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/jun/notesapp/internal/crypto"
)

// ErrNotSet is wrapped by every resolver when the named secret does not exist
// or is empty. Other errors mean the source itself failed.
var ErrNotSet = errors.New("secret not set")

// EncryptedSuffix is appended to the environment variable name read by KMSEnvResolver.
const EncryptedSuffix = "_ENCRYPTED"

// SSMClient is the subset of *ssm.Client methods used by SSMResolver.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resolver retrieves secret values by name.
type Resolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SSMResolver fetches secrets from AWS Systems Manager Parameter Store.
type SSMResolver struct {
	client SSMClient
}

// NewSSMResolver returns a Resolver backed by SSM Parameter Store.
func NewSSMResolver(client SSMClient) Resolver {
	return &SSMResolver{client: client}
}

// GetSecret retrieves a SecureString parameter from SSM with decryption.
func (r *SSMResolver) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("ssm parameter %q: %w", name, ErrNotSet)
		}
		return "", fmt.Errorf("ssm get parameter %q: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil || *out.Parameter.Value == "" {
		return "", fmt.Errorf("ssm parameter %q has no value: %w", name, ErrNotSet)
	}
	return *out.Parameter.Value, nil
}

// EnvResolver fetches secrets from environment variables.
// The parameter name is converted from SSM path format (e.g. "/notes/mongodb-uri")
// to the corresponding environment variable name (e.g. "MONGODB_URI") by taking the
// last segment, uppercasing, and replacing hyphens with underscores.
type EnvResolver struct{}

// NewEnvResolver returns a Resolver that reads from environment variables.
func NewEnvResolver() Resolver {
	return &EnvResolver{}
}

// GetSecret reads from the environment variable derived from the parameter name.
func (r *EnvResolver) GetSecret(_ context.Context, name string) (string, error) {
	envName := ParamNameToEnvVar(name)
	val := os.Getenv(envName)
	if val == "" {
		return "", fmt.Errorf("environment variable %q (from param %q): %w", envName, name, ErrNotSet)
	}
	return val, nil
}

// KMSEnvResolver reads base64 KMS ciphertext from an environment variable and
// decrypts it. "/notes/mongodb-uri" is read from MONGODB_URI_ENCRYPTED.
type KMSEnvResolver struct {
	decryptor crypto.Encryptor
}

// NewKMSEnvResolver returns a Resolver that decrypts environment variables with enc.
func NewKMSEnvResolver(enc crypto.Encryptor) Resolver {
	return &KMSEnvResolver{decryptor: enc}
}

// GetSecret decrypts the ciphertext stored under the derived variable name.
func (r *KMSEnvResolver) GetSecret(ctx context.Context, name string) (string, error) {
	envName := ParamNameToEnvVar(name) + EncryptedSuffix
	ciphertext := os.Getenv(envName)
	if ciphertext == "" {
		return "", fmt.Errorf("environment variable %q (from param %q): %w", envName, name, ErrNotSet)
	}
	val, err := r.decryptor.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("decrypt %q: %w", envName, err)
	}
	return val, nil
}

// ParamNameToEnvVar converts an SSM parameter name to an environment variable name.
// "/notes/mongodb-uri" -> "MONGODB_URI"
// "/notes/api-token-secret" -> "API_TOKEN_SECRET"
func ParamNameToEnvVar(name string) string {
	parts := strings.Split(name, "/")
	last := parts[len(parts)-1]
	return strings.ToUpper(strings.ReplaceAll(last, "-", "_"))
}

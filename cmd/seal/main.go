// Command seal encrypts a configuration value with KMS and prints the base64
// ciphertext, ready to be stored in a <NAME>_ENCRYPTED environment variable
// read by SECRET_SOURCE=kms deployments.
//
// Usage:
//
//	MONGODB_URI=mongodb+srv://... seal -env MONGODB_URI
//	seal -env MONGODB_URI < uri.txt
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/rs/zerolog"

	"github.com/jun/notesapp/internal/crypto"
	"github.com/jun/notesapp/internal/secret"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	envName := flag.String("env", "MONGODB_URI", "environment variable holding the plaintext (read from stdin when unset)")
	keyID := flag.String("key", "alias/notes-config-key", "KMS key ID or alias")
	flag.Parse()

	plaintext := os.Getenv(*envName)
	if plaintext == "" {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			plaintext = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to read stdin")
		}
	}
	plaintext = strings.TrimSpace(plaintext)
	if plaintext == "" {
		logger.Fatal().Str("env", *envName).Msg("nothing to encrypt")
	}

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to load SDK config")
	}

	enc := crypto.NewKMSService(kms.NewFromConfig(awsCfg), *keyID)
	ciphertext, err := enc.Encrypt(ctx, plaintext)
	if err != nil {
		logger.Fatal().Err(err).Str("key", *keyID).Msg("encryption failed")
	}

	fmt.Printf("%s%s=%s\n", *envName, secret.EncryptedSuffix, ciphertext)
}

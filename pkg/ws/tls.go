package ws

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
)

// TLSConfigFromEnv загружает TLS конфигурацию для wss:// из переменных окружения
// HUB_TLS_CERT - клиентский сертификат в base64 (опционально, вместе с HUB_TLS_KEY)
// HUB_TLS_KEY - приватный ключ в base64
// HUB_TLS_CA - CA сертификат в base64
// Если ни одна переменная не задана, возвращается nil.
func TLSConfigFromEnv() (*tls.Config, error) {
	return tlsConfigFromValues(
		os.Getenv("HUB_TLS_CERT"),
		os.Getenv("HUB_TLS_KEY"),
		os.Getenv("HUB_TLS_CA"),
	)
}

func tlsConfigFromValues(certB64, keyB64, caB64 string) (*tls.Config, error) {
	if certB64 == "" && keyB64 == "" && caB64 == "" {
		return nil, nil
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if certB64 != "" || keyB64 != "" {
		if certB64 == "" || keyB64 == "" {
			return nil, fmt.Errorf("HUB_TLS_CERT and HUB_TLS_KEY must be set together")
		}

		certPEM, err := base64.StdEncoding.DecodeString(certB64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode HUB_TLS_CERT: %w", err)
		}

		keyPEM, err := base64.StdEncoding.DecodeString(keyB64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode HUB_TLS_KEY: %w", err)
		}

		cert, err := tls.X509KeyPair(certPEM, keyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}

		cfg.Certificates = []tls.Certificate{cert}
	}

	if caB64 != "" {
		caPEM, err := base64.StdEncoding.DecodeString(caB64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode HUB_TLS_CA: %w", err)
		}

		rootCAs := x509.NewCertPool()
		if !rootCAs.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}

		cfg.RootCAs = rootCAs
	}

	return cfg, nil
}

package utils

import (
	"fmt"
	"os"
	"strings"
)

// ReadSecret читает секрет движка голосования из файла Docker Secrets
// (/run/secrets/<имя>). Завершающий перевод строки обрезается.
func ReadSecret(secretName string) (string, error) {
	filePath := fmt.Sprintf("/run/secrets/%s", secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		// Fallback на env var не делаем: секрет либо смонтирован, либо сервис не стартует
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

package services

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// ErrInvalidCredentials wird bei unbekannter E-Mail oder falschem Passwort zurückgegeben.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Admin ist ein Eintrag der Admin-Datei.
type Admin struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
}

type adminsFile struct {
	Admins []Admin `yaml:"admins"`
}

// LoadAdmins liest die YAML-Datei mit den Admin-Zugängen.
func LoadAdmins(path string) ([]Admin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read admin file: %w", err)
	}
	var f adminsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse admin file %s: %w", path, err)
	}
	return f.Admins, nil
}

// AuthService prüft Admin-Zugangsdaten gegen bcrypt-Hashes.
type AuthService struct {
	admins map[string]string
	log    *zap.Logger
}

// NewAuthService erstellt einen AuthService. E-Mails werden ohne Beachtung der Groß-/Kleinschreibung verglichen.
func NewAuthService(admins []Admin, log *zap.Logger) *AuthService {
	m := make(map[string]string, len(admins))
	for _, a := range admins {
		email := strings.ToLower(strings.TrimSpace(a.Email))
		if email == "" || a.PasswordHash == "" {
			log.Warn("skipping incomplete admin entry", zap.String("email", a.Email))
			continue
		}
		m[email] = a.PasswordHash
	}
	return &AuthService{admins: m, log: log}
}

// Authenticate liefert die normalisierte E-Mail bei gültigen Zugangsdaten.
func (s *AuthService) Authenticate(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, ok := s.admins[email]
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		s.log.Info("failed login attempt", zap.String("email", email))
		return "", ErrInvalidCredentials
	}
	return email, nil
}

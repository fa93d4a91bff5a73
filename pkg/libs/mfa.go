package libs

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"

	"github.com/oarkflow/usermgr/pkg/models"
)

// GenerateMFASecret creates a TOTP secret for username and renders its
// provisioning URL as a PNG data URL.
func GenerateMFASecret(username, issuer string) (models.MFASetupData, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: username,
	})
	if err != nil {
		return models.MFASetupData{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return models.MFASetupData{}, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return models.MFASetupData{
		Secret: key.Secret(),
		URL:    key.URL(),
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

func VerifyMFACode(code, secret string) bool {
	code = strings.ReplaceAll(strings.TrimSpace(code), " ", "")
	if len(code) != 6 {
		return false
	}
	return totp.Validate(code, secret)
}

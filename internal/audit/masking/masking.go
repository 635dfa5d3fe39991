package masking

import "strings"

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return email
	}
	return email[:1] + "***" + email[at:]
}

// MaskMetadata masks values under keys that usually carry PII.
func MaskMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return metadata
	}
	masked := make(map[string]any, len(metadata))
	for key, value := range metadata {
		str, ok := value.(string)
		if !ok {
			masked[key] = value
			continue
		}
		switch strings.ToLower(key) {
		case "email", "guest_email":
			masked[key] = MaskEmail(str)
		case "phone", "guest_phone":
			masked[key] = maskTail(str)
		default:
			masked[key] = value
		}
	}
	return masked
}

func maskTail(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

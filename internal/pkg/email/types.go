// internal/pkg/email/types.go
package email

import "time"

// Email represents an email message
type Email struct {
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	HTMLContent string   `json:"html_content"`
}

// TemplateData contains common data for all email templates
type TemplateData struct {
	SiteName  string
	SiteURL   string
	UserName  string
	UserEmail string
	Year      int
}

// WelcomeData contains data for the welcome email
type WelcomeData struct {
	TemplateData
	ShopURL string
}

// PasswordResetData contains data for the password reset email
type PasswordResetData struct {
	TemplateData
	ResetURL  string
	ExpiresIn int
}

func baseTemplateData(siteName, siteURL, userName, userEmail string) TemplateData {
	return TemplateData{
		SiteName:  siteName,
		SiteURL:   siteURL,
		UserName:  userName,
		UserEmail: userEmail,
		Year:      time.Now().Year(),
	}
}

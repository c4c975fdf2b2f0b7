package config

// App holds marketplace-level settings.
type App struct {
	// AllowedEmailDomain is the single email suffix permitted to list or
	// request items, without the leading "@".
	AllowedEmailDomain string `env:"ALLOWED_EMAIL_DOMAIN" envDefault:"college.edu"`

	// UploadDir is the writable directory where listing images are stored.
	UploadDir string `env:"UPLOAD_DIR" envDefault:"./data/uploads"`
}

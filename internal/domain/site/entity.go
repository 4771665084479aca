package site

// Site is a physical work location. Biometric devices are registered to exactly one site.
type Site struct {
	ID       string
	Name     string
	Timezone string
}

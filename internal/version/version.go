package version

// AppName is the bot's display name.
const AppName = "Charfred"

// Version is set at build time with -ldflags "-X charfred/internal/version.Version=...".
var Version = "dev"

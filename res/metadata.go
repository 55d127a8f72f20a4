package res

const (
	AppName       = "cine"
	AppID         = "io.github.cineplayer.Cine"
	DisplayName   = "Cine"
	AppVersion    = "0.4.0"
	AppVersionTag = "v" + AppVersion
	ConfigFile    = "config.toml"
	GithubURL     = "https://github.com/cineplayer/cine"
)

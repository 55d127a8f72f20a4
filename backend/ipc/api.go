package ipc

const (
	PingPath      = "/ping"
	PlayPausePath = "/transport/playpause"
	PreviousPath  = "/transport/previous"
	NextPath      = "/transport/next"
	OpenPath      = "/playlist/open" // body: OpenFiles
	ShowPath      = "/window/show"
	QuitPath      = "/window/quit"
)

type Response struct {
	Error string `json:"error"`
}

// OpenFiles lists paths or URLs to append to the running instance's playlist.
type OpenFiles struct {
	Files []string `json:"files"`
}

package player

// MPV implements the Player interface for mpv.
type MPV struct{}

func (m *MPV) Name() string { return "mpv" }

func (m *MPV) Available() bool { return lookPath("mpv") }

func (m *MPV) Args(req Request) []string {
	args := []string{
		req.URL,
		"--force-media-title=" + req.Title,
		"--really-quiet",
	}
	if req.Referer != "" {
		args = append(args, "--referrer="+req.Referer)
	}
	if req.UserAgent != "" {
		args = append(args, "--user-agent="+req.UserAgent)
	}
	return args
}

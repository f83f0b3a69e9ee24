package player

// VLC implements the Player interface for VLC media player.
type VLC struct{}

func (v *VLC) Name() string { return "vlc" }

func (v *VLC) Available() bool { return lookPath("vlc") }

func (v *VLC) Args(req Request) []string {
	args := []string{
		req.URL,
		"--meta-title", req.Title,
		"--play-and-exit",
	}
	if req.Referer != "" {
		args = append(args, "--http-referrer", req.Referer)
	}
	if req.UserAgent != "" {
		args = append(args, "--http-user-agent", req.UserAgent)
	}
	return args
}

package player

// Generic runs mpv front-ends (iina, celluloid) that accept mpv-style flags.
type Generic struct {
	name string
}

func (g *Generic) Name() string { return g.name }

func (g *Generic) Available() bool { return lookPath(g.name) }

func (g *Generic) Args(req Request) []string {
	args := []string{req.URL, "--force-media-title=" + req.Title}
	if req.Referer != "" {
		args = append(args, "--referrer="+req.Referer)
	}
	if req.UserAgent != "" {
		args = append(args, "--user-agent="+req.UserAgent)
	}
	return args
}

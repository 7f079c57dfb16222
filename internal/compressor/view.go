package compressor

// View is an immutable rendering of a session.
type View struct {
	Stage           Stage   `json:"stage"`
	FileName        string  `json:"fileName,omitempty"`
	OriginalSize    int64   `json:"originalSize"`
	OriginalDisplay string  `json:"originalDisplay,omitempty"`
	Quality         Quality `json:"quality"`
	// Progress is 0-100 while compressing and 100 once completed.
	Progress      float64 `json:"progress"`
	OutputSize    int64   `json:"outputSize"`
	OutputDisplay string  `json:"outputDisplay,omitempty"`
	// PercentChange is only set once the session completed.
	PercentChange    *float64    `json:"percentChange,omitempty"`
	DownloadName     string      `json:"downloadName,omitempty"`
	FailureKind      FailureKind `json:"failureKind,omitempty"`
	Failure          string      `json:"failure,omitempty"`
	EngineReady      bool        `json:"engineReady"`
	PlaybackRevision uint64      `json:"playbackRevision"`
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		Stage:            s.stage,
		Quality:          s.quality,
		EngineReady:      s.engineReady,
		PlaybackRevision: s.playbackRevision,
	}

	if s.input != nil {
		v.FileName = s.input.Name
		v.OriginalSize = s.input.Size()
		v.OriginalDisplay = DisplaySize(v.OriginalSize)
	}

	switch s.stage {
	case StageCompressing:
		v.Progress = s.progress
		v.OutputSize = s.outputSize
		v.OutputDisplay = DisplaySize(s.outputSize)
	case StageCompleted:
		v.Progress = 100
		v.OutputSize = s.outputSize
		v.OutputDisplay = DisplaySize(s.outputSize)
		change := PercentChange(v.OriginalSize, s.outputSize)
		v.PercentChange = &change
		v.DownloadName = OutputName(v.FileName)
	case StageFailed:
		if s.failure != nil {
			v.FailureKind = s.failure.Kind
			v.Failure = s.failure.Err.Error()
		}
	}

	return v
}

// Subscribe returns a channel that receives the current view immediately
// and again after every change. Updates are coalesced: a slow reader only
// sees the latest view. The channel is closed by the returned cancel
// function or by Close.
func (s *Session) Subscribe() (<-chan View, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan View, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.viewLocked()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

func (s *Session) notifyLocked() {
	if len(s.subs) == 0 {
		return
	}

	v := s.viewLocked()
	for _, ch := range s.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// Replace the unread view with the newer one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

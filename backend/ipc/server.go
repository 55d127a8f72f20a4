package ipc

import (
	"encoding/json"
	"errors"
	"net/http"
)

type PlaybackHandler interface {
	PlayPause() error
	Next() error
	Previous() error

	// OpenFiles appends the files to the playlist.
	OpenFiles(files []string) error
}

type WindowHandler interface {
	Show()
	Quit()
}

type serverImpl struct {
	pbHandler PlaybackHandler
	wdHandler WindowHandler
}

func NewServer(pbHandler PlaybackHandler, wdHandler WindowHandler) *http.Server {
	s := serverImpl{pbHandler: pbHandler, wdHandler: wdHandler}
	return &http.Server{
		Handler: s.createHandler(),
	}
}

func (s *serverImpl) createHandler() http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("The given path is not valid"))
	})
	m.HandleFunc(PingPath, s.makeSimpleEndpointHandler(func() error { return nil }))
	m.HandleFunc(ShowPath, s.makeSimpleEndpointHandler(func() error {
		s.wdHandler.Show()
		return nil
	}))
	m.HandleFunc(QuitPath, s.makeSimpleEndpointHandler(func() error {
		go s.wdHandler.Quit()
		return nil
	}))
	m.HandleFunc(PlayPausePath, s.makeSimpleEndpointHandler(s.pbHandler.PlayPause))
	m.HandleFunc(PreviousPath, s.makeSimpleEndpointHandler(s.pbHandler.Previous))
	m.HandleFunc(NextPath, s.makeSimpleEndpointHandler(s.pbHandler.Next))
	m.HandleFunc(OpenPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.writeErr(w, errors.New("method not allowed"))
			return
		}
		var o OpenFiles
		if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
			s.writeErr(w, err)
			return
		}
		if len(o.Files) == 0 {
			s.writeErr(w, errors.New("no files given"))
			return
		}
		s.writeSimpleResponse(w, s.pbHandler.OpenFiles(o.Files))
	})
	return m
}

func (s *serverImpl) makeSimpleEndpointHandler(f func() error) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeSimpleResponse(w, f())
	}
}

func (s *serverImpl) writeSimpleResponse(w http.ResponseWriter, err error) {
	if err == nil {
		s.writeOK(w)
	} else {
		s.writeErr(w, err)
	}
}

func (s *serverImpl) writeOK(w http.ResponseWriter) (int, error) {
	var r Response
	b, err := json.Marshal(&r)
	if err != nil {
		return 0, err
	}
	return w.Write(b)
}

func (s *serverImpl) writeErr(w http.ResponseWriter, err error) (int, error) {
	r := Response{Error: err.Error()}
	b, err := json.Marshal(&r)
	if err != nil {
		return 0, err
	}
	w.WriteHeader(http.StatusInternalServerError)
	return w.Write(b)
}

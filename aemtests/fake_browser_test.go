package aemtests

import (
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adobe/aem-test-harness/framework/browser"
)

const fakeCSRFToken = "fake-csrf-token"

// fakeSessions hands out sessions that record every call instead of driving a browser. A call
// listed in failures returns the given error, for the given number of sessions (0 means always).
//
// The sessions share a small model of the Assets folder: files chosen in an input are uploaded by
// the next click, an asset's .json URL answers 200 while it exists, and deletePage removes it.
type fakeSessions struct {
	failures map[string]*fakeFailure
	opened   []browser.SessionOptions
	sessions []*fakeSession
	openErr  error
	assets   map[string]bool
	// ignoreUploads and ignoreDeletes make the folder never change.
	ignoreUploads bool
	ignoreDeletes bool
	lock          sync.Mutex
}

type fakeFailure struct {
	err   error
	times int
}

type fakeSession struct {
	owner  *fakeSessions
	opts   browser.SessionOptions
	calls  []string
	chosen []string
	closed bool
	failed bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{failures: make(map[string]*fakeFailure), assets: make(map[string]bool)}
}

func (f *fakeSessions) hasAsset(name string) bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.assets[name]
}

func (f *fakeSessions) failOn(call string, err error, times int) *fakeSessions {
	f.failures[call] = &fakeFailure{err: err, times: times}
	return f
}

func (f *fakeSessions) NewSession(opts browser.SessionOptions) (browser.Session, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	s := &fakeSession{owner: f, opts: opts}
	f.opened = append(f.opened, opts)
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeSessions) sessionFor(outputDir string) *fakeSession {
	f.lock.Lock()
	defer f.lock.Unlock()
	for _, s := range f.sessions {
		if s.opts.OutputDir == outputDir {
			return s
		}
	}
	return nil
}

func (s *fakeSession) call(format string, args ...interface{}) error {
	c := fmt.Sprintf(format, args...)
	s.owner.lock.Lock()
	defer s.owner.lock.Unlock()
	s.calls = append(s.calls, c)
	if f, ok := s.owner.failures[c]; ok {
		switch {
		case f.times == 0:
			return f.err
		case f.times > 0:
			f.times--
			if f.times == 0 {
				delete(s.owner.failures, c)
			}
			return f.err
		}
	}
	return nil
}

func (s *fakeSession) Goto(url string) error               { return s.call("Goto %s", url) }
func (s *fakeSession) ExpectTitle(title string) error      { return s.call("ExpectTitle %s", title) }
func (s *fakeSession) ExpectVisible(selector string) error { return s.call("ExpectVisible %s", selector) }
func (s *fakeSession) ExpectHeading(text string) error     { return s.call("ExpectHeading %s", text) }
func (s *fakeSession) ExpectPresent(selector string) error { return s.call("ExpectPresent %s", selector) }

func (s *fakeSession) Click(selector string) error {
	if err := s.call("Click %s", selector); err != nil {
		return err
	}
	s.owner.lock.Lock()
	defer s.owner.lock.Unlock()
	if !s.owner.ignoreUploads {
		for _, name := range s.chosen {
			s.owner.assets[name] = true
		}
	}
	s.chosen = nil
	return nil
}

func (s *fakeSession) SetInputFiles(selector string, files ...browser.File) error {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	if err := s.call("SetInputFiles %s %s", selector, strings.Join(names, ",")); err != nil {
		return err
	}
	s.owner.lock.Lock()
	s.chosen = names
	s.owner.lock.Unlock()
	return nil
}

func (s *fakeSession) Get(url string) (browser.Response, error) {
	if err := s.call("Get %s", url); err != nil {
		return browser.Response{}, err
	}
	s.owner.lock.Lock()
	defer s.owner.lock.Unlock()
	switch {
	case strings.HasSuffix(url, "/libs/granite/csrf/token.json"):
		return browser.Response{Status: http.StatusOK, Body: []byte(`{"token":"` + fakeCSRFToken + `"}`)}, nil
	case strings.HasSuffix(url, ".json") && !s.owner.assets[path.Base(strings.TrimSuffix(url, ".json"))]:
		return browser.Response{Status: http.StatusNotFound}, nil
	default:
		return browser.Response{Status: http.StatusOK, Body: []byte("{}")}, nil
	}
}

func (s *fakeSession) PostForm(url string, form, headers map[string]string) (browser.Response, error) {
	if err := s.call("PostForm %s %s %s", url, form["cmd"], form["path"]); err != nil {
		return browser.Response{}, err
	}
	s.owner.lock.Lock()
	defer s.owner.lock.Unlock()
	name := path.Base(form["path"])
	switch {
	case headers["CSRF-Token"] != fakeCSRFToken:
		return browser.Response{Status: http.StatusForbidden}, nil
	case form["cmd"] != "deletePage" || !s.owner.assets[name]:
		return browser.Response{Status: http.StatusNotFound}, nil
	}
	if !s.owner.ignoreDeletes {
		delete(s.owner.assets, name)
	}
	return browser.Response{Status: http.StatusOK}, nil
}

func (s *fakeSession) ExpectAttribute(selector, name, value string) error {
	return s.call("ExpectAttribute %s %s=%s", selector, name, value)
}

// Fill records the selector only, like the real session's log.
func (s *fakeSession) Fill(selector, value string) error {
	return s.call("Fill %s", selector)
}

func (s *fakeSession) Close(failed bool, attach func(name, path string)) error {
	s.owner.lock.Lock()
	s.closed = true
	s.failed = failed
	s.owner.lock.Unlock()
	if failed {
		attach("screenshot", filepath.Join(s.opts.OutputDir, browser.ScreenshotFileName))
	}
	attach("video", filepath.Join(s.opts.OutputDir, "video.webm"))
	return nil
}

func (s *fakeSession) recordedCalls() []string {
	s.owner.lock.Lock()
	defer s.owner.lock.Unlock()
	return append([]string(nil), s.calls...)
}

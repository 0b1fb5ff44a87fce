package http

import (
	"fmt"
	"net/http"
)

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.reports.Projects(r.Context())
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	s.renderPage(w, r, "projects.html", "Projects", "projects", projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request.").Write(w)
		return
	}
	p, err := parseProjectForm(r.PostForm)
	if err == nil {
		_, err = s.ledger.CreateProject(r.Context(), p)
	}
	if err != nil {
		s.fail(w, r, err, "/projects")
		return
	}
	s.projectsChanged(w, r, "Project added.", true)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err == nil {
		err = s.ledger.DeleteProject(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, err, "/projects")
		return
	}
	s.projectsChanged(w, r, "Project deleted.", false)
}

func (s *Server) projectsChanged(w http.ResponseWriter, r *http.Request, msg string, resetForm bool) {
	s.done(w, r, msg, "/projects", func() {
		projects, err := s.reports.Projects(r.Context())
		if err != nil {
			s.fail(w, r, err, "/projects")
			return
		}
		resp := NewHTMXResponse().TriggerLedgerChanged().TriggerSuccessNotification(msg)
		if resetForm {
			resp.TriggerFormReset()
		}
		s.renderFragments(w, r, resp, fragment{"project_list", projects})
	})
}

func (s *Server) handleProjectDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, err, "/projects")
		return
	}
	d, err := s.reports.ProjectDetail(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "/projects")
		return
	}
	s.renderPage(w, r, "project_detail.html", d.Project.Name, "projects", d)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, err, "/projects")
		return
	}
	back := projectPath(id)
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request.").Write(w)
		return
	}
	p, err := parseProjectForm(r.PostForm)
	if err == nil {
		p.ID = id
		err = s.ledger.UpdateProject(r.Context(), p)
	}
	if err != nil {
		s.fail(w, r, err, back)
		return
	}
	s.projectDetailChanged(w, r, id, "Project updated.", "project_summary", false)
}

func (s *Server) handleCreateTimeEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, err, "/projects")
		return
	}
	back := projectPath(id)
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request.").Write(w)
		return
	}
	te, err := parseTimeEntryForm(r.PostForm, id)
	if err == nil {
		_, err = s.ledger.AddTimeEntry(r.Context(), te)
	}
	if err != nil {
		s.fail(w, r, err, back)
		return
	}
	s.projectDetailChanged(w, r, id, "Time logged.", "time_entries", true)
}

func (s *Server) handleDeleteTimeEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, err, "/projects")
		return
	}
	projectID, err := s.ledger.DeleteTimeEntry(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "/projects")
		return
	}
	s.projectDetailChanged(w, r, projectID, "Time entry deleted.", "time_entries", false)
}

// projectDetailChanged re-renders one part of the project page. The stats
// block is always swapped out of band since hours and rates move together.
func (s *Server) projectDetailChanged(w http.ResponseWriter, r *http.Request, projectID int64, msg, name string, resetForm bool) {
	s.done(w, r, msg, projectPath(projectID), func() {
		d, err := s.reports.ProjectDetail(r.Context(), projectID)
		if err != nil {
			s.fail(w, r, err, "/projects")
			return
		}
		resp := NewHTMXResponse().TriggerSuccessNotification(msg)
		if resetForm {
			resp.TriggerFormReset()
		}
		fragments := []fragment{{name, d}}
		if name != "project_summary" {
			fragments = append(fragments, fragment{"project_stats_oob", d})
		}
		s.renderFragments(w, r, resp, fragments...)
	})
}

func projectPath(id int64) string {
	return fmt.Sprintf("/projects/%d", id)
}

// Package pam360test provides an in-memory PAM360 REST API for tests.
package pam360test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

const Token = "00000000-0000-4000-A000-000000000000"

// Call is a request received by the fake.
type Call struct {
	Method string
	Path   string
	// Input is operation.Details of INPUT_DATA, nil for GET.
	Input map[string]interface{}
}

type Account struct {
	ID       string
	Name     string
	Password string
	Policy   string
}

type Resource struct {
	ID       string
	Name     string
	Type     string
	DNSName  string
	Group    string
	Accounts []*Account
	// SharedWith maps user id to access type.
	SharedWith map[string]string
}

type failure struct {
	code    int
	message string
}

type Server struct {
	*httptest.Server

	mu        sync.Mutex
	resources []*Resource
	calls     []Call
	failures  map[string]failure
	nextID    int
}

// NewServer starts a TLS server with a self-signed certificate.
func NewServer() *Server {
	s := &Server{
		failures: make(map[string]failure),
		nextID:   100,
	}
	s.Server = httptest.NewTLSServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.authenticate, s.injectFailures)

	r.Route("/restapi/json/v1/resources", func(r chi.Router) {
		r.Get("/", s.listResources)
		r.Post("/", s.createResource)
		r.Get("/resourcename/{name}", s.resourceByName)
		r.Get("/{id}/accounts", s.listAccounts)
		r.Post("/{id}/accounts", s.createAccounts)
		r.Put("/{id}/accounts/{accountID}/password", s.resetPassword)
		r.Put("/{id}/share", s.shareResource)
	})

	return r
}

// AddResource registers a resource with accounts and returns its id.
func (s *Server) AddResource(name string, accounts ...string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.addResourceLocked(name)
	for _, account := range accounts {
		s.addAccountLocked(res, account, "", "")
	}
	return res.ID
}

// AddResourceWithID registers a resource with fixed resource and account ids.
func (s *Server) AddResourceWithID(id, name string, accounts ...Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &Resource{ID: id, Name: name, SharedWith: map[string]string{}}
	for i := range accounts {
		account := accounts[i]
		res.Accounts = append(res.Accounts, &account)
	}
	s.resources = append(s.resources, res)
}

// FailOn makes the next and all following requests to method and path answer
// with a Failed status and the HTTP code.
func (s *Server) FailOn(method, path string, code int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{code: code, message: message}
}

func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns calls with the given method.
func (s *Server) CallsTo(method string) []Call {
	var res []Call
	for _, call := range s.Calls() {
		if call.Method == method {
			res = append(res, call)
		}
	}
	return res
}

// Resource returns a copy of the first resource named name.
func (s *Server) Resource(name string) (Resource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.resources {
		if r.Name == name {
			return *r, true
		}
	}
	return Resource{}, false
}

// Password returns the stored password of an account.
func (s *Server) Password(resourceName, accountName string) string {
	r, ok := s.Resource(resourceName)
	if !ok {
		return ""
	}
	for _, a := range r.Accounts {
		if a.Name == accountName {
			return a.Password
		}
	}
	return ""
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := Call{Method: r.Method, Path: r.URL.Path}

		if err := r.ParseForm(); err != nil {
			writeResult(w, http.StatusBadRequest, "Failed", err.Error(), nil)
			return
		}
		if raw := r.PostForm.Get("INPUT_DATA"); raw != "" {
			var in struct {
				Operation struct {
					Details map[string]interface{} `json:"Details"`
				} `json:"operation"`
			}
			if err := json.Unmarshal([]byte(raw), &in); err != nil {
				writeResult(w, http.StatusBadRequest, "Failed", "Invalid INPUT_DATA: "+err.Error(), nil)
				return
			}
			call.Input = in.Operation.Details
		}

		s.mu.Lock()
		s.calls = append(s.calls, call)
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("AUTHTOKEN") != Token {
			writeResult(w, http.StatusUnauthorized, "Failed", "User authentication failed", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			writeResult(w, f.code, "Failed", f.message, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listResources(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]map[string]interface{}, 0, len(s.resources))
	for _, r := range s.resources {
		list = append(list, map[string]interface{}{
			"RESOURCE ID":   r.ID,
			"RESOURCE NAME": r.Name,
			"RESOURCE TYPE": r.Type,
			"DNS NAME":      r.DNSName,
		})
	}
	writeResult(w, http.StatusOK, "Success", "Resources fetched successfully", list)
}

func (s *Server) createResource(w http.ResponseWriter, r *http.Request) {
	in := detailsOf(r)
	name, _ := in["RESOURCENAME"].(string)
	account, _ := in["ACCOUNTNAME"].(string)
	if name == "" || account == "" {
		writeResult(w, http.StatusBadRequest, "Failed", "RESOURCENAME and ACCOUNTNAME are required", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, res := range s.resources {
		if res.Name == name {
			writeResult(w, http.StatusOK, "Failed", fmt.Sprintf("Resource %s already exists", name), nil)
			return
		}
	}

	res := s.addResourceLocked(name)
	res.Type, _ = in["RESOURCETYPE"].(string)
	res.DNSName, _ = in["DNSNAME"].(string)
	res.Group, _ = in["RESOURCEGROUPNAME"].(string)
	password, _ := in["PASSWORD"].(string)
	policy, _ := in["ACCOUNTPASSWORDPOLICY"].(string)
	s.addAccountLocked(res, account, password, policy)

	writeResult(w, http.StatusOK, "Success", fmt.Sprintf("Resource %s has been added successfully", name), nil)
}

func (s *Server) resourceByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, res := range s.resources {
		if res.Name == name {
			details := map[string]interface{}{"RESOURCEID": res.ID}
			if len(res.Accounts) > 0 {
				details["ACCOUNTID"] = res.Accounts[0].ID
			}
			writeResult(w, http.StatusOK, "Success", "Resource ID fetched successfully", details)
			return
		}
	}
	writeResult(w, http.StatusNotFound, "Failed", fmt.Sprintf("Resource %s not found", name), nil)
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.findLocked(chi.URLParam(r, "id"))
	if res == nil {
		writeResult(w, http.StatusNotFound, "Failed", "Resource not found", nil)
		return
	}

	list := make([]map[string]interface{}, 0, len(res.Accounts))
	for _, a := range res.Accounts {
		list = append(list, map[string]interface{}{
			"ACCOUNT ID":      a.ID,
			"ACCOUNT NAME":    a.Name,
			"PASSWORD STATUS": "****",
		})
	}
	writeResult(w, http.StatusOK, "Success", "Resource details with account list fetched successfully", map[string]interface{}{
		"RESOURCE ID":   res.ID,
		"RESOURCE NAME": res.Name,
		"ACCOUNT LIST":  list,
	})
}

func (s *Server) createAccounts(w http.ResponseWriter, r *http.Request) {
	in := detailsOf(r)
	list, _ := in["ACCOUNTLIST"].([]interface{})
	if len(list) == 0 {
		writeResult(w, http.StatusBadRequest, "Failed", "ACCOUNTLIST is required", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.findLocked(chi.URLParam(r, "id"))
	if res == nil {
		writeResult(w, http.StatusNotFound, "Failed", "Resource not found", nil)
		return
	}

	for _, item := range list {
		account, _ := item.(map[string]interface{})
		name, _ := account["ACCOUNTNAME"].(string)
		password, _ := account["PASSWORD"].(string)
		policy, _ := account["ACCOUNTPASSWORDPOLICY"].(string)
		s.addAccountLocked(res, name, password, policy)
	}
	writeResult(w, http.StatusOK, "Success", "Account(s) added successfully", nil)
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	in := detailsOf(r)
	password, _ := in["NEWPASSWORD"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.findLocked(chi.URLParam(r, "id"))
	if res == nil {
		writeResult(w, http.StatusNotFound, "Failed", "Resource not found", nil)
		return
	}
	accountID := chi.URLParam(r, "accountID")
	for _, a := range res.Accounts {
		if a.ID == accountID {
			a.Password = password
			writeResult(w, http.StatusOK, "Success", "Password changed successfully", nil)
			return
		}
	}
	writeResult(w, http.StatusNotFound, "Failed", "Account not found", nil)
}

func (s *Server) shareResource(w http.ResponseWriter, r *http.Request) {
	in := detailsOf(r)
	userID, _ := in["USERID"].(string)
	accessType, _ := in["ACCESSTYPE"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.findLocked(chi.URLParam(r, "id"))
	if res == nil {
		writeResult(w, http.StatusNotFound, "Failed", "Resource not found", nil)
		return
	}
	res.SharedWith[userID] = accessType
	writeResult(w, http.StatusOK, "Success", "Resource shared successfully to the user(s)", nil)
}

func (s *Server) addResourceLocked(name string) *Resource {
	s.nextID++
	res := &Resource{
		ID:         strconv.Itoa(s.nextID),
		Name:       name,
		SharedWith: map[string]string{},
	}
	s.resources = append(s.resources, res)
	return res
}

func (s *Server) addAccountLocked(res *Resource, name, password, policy string) {
	s.nextID++
	res.Accounts = append(res.Accounts, &Account{
		ID:       strconv.Itoa(s.nextID),
		Name:     name,
		Password: password,
		Policy:   policy,
	})
}

func (s *Server) findLocked(id string) *Resource {
	for _, r := range s.resources {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func detailsOf(r *http.Request) map[string]interface{} {
	raw := r.PostForm.Get("INPUT_DATA")
	var in struct {
		Operation struct {
			Details map[string]interface{} `json:"Details"`
		} `json:"operation"`
	}
	_ = json.Unmarshal([]byte(raw), &in)
	if in.Operation.Details == nil {
		return map[string]interface{}{}
	}
	return in.Operation.Details
}

func writeResult(w http.ResponseWriter, code int, status, message string, details interface{}) {
	operation := map[string]interface{}{
		"result": map[string]interface{}{
			"status":  status,
			"message": message,
		},
	}
	if details != nil {
		operation["Details"] = details
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"operation": operation})
}

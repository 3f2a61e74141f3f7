// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package types

import "github.com/gin-gonic/gin"

// Role identifies what a participant is allowed to do inside an interview
// session. Recruiters and interviewers are privileged: they can start a
// session without a recording-consent prompt. Candidates are the recorded
// subject and must grant consent before their capture may begin.
type Role string

const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
	RoleRecruiter   Role = "recruiter"
)

// Privileged reports whether the role may operate a session on behalf of
// others (start/end, see upload failures).
func (r Role) Privileged() bool {
	return r == RoleInterviewer || r == RoleRecruiter
}

// RequiresConsent reports whether a recording-consent decision must exist
// before a session started by this role may activate capture.
func (r Role) RequiresConsent() bool {
	return r == RoleCandidate
}

// Principle is the authenticated participant attached to a request.
type Principle struct {
	UserID      string `json:"userId"`
	Role        Role   `json:"role"`
	DisplayName string `json:"displayName"`
}

const principleContextKey = "auth-principle"

// SetAuthPrinciple attaches the authenticated principle to the gin context.
func SetAuthPrinciple(c *gin.Context, p Principle) {
	c.Set(principleContextKey, p)
}

// GetAuthPrinciple resolves the authenticated principle from the gin context.
func GetAuthPrinciple(c *gin.Context) (Principle, bool) {
	v, ok := c.Get(principleContextKey)
	if !ok {
		return Principle{}, false
	}
	p, ok := v.(Principle)
	return p, ok
}

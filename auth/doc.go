// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides id generation, password hashing and role checks.

# Action IDs

Pending agent actions are addressed by a random 32-byte secret:

	id, err := auth.GenerateActionID()

The id is URL-safe base64 without padding, so it can travel in a path
segment. Knowing the id is what allows a caller to confirm the action.

# Record IDs

	id, err := auth.GenerateID(16)           // 32 hex characters
	userID := auth.NewUserID()               // user-3f9a0c12b4de
	projectID := auth.NewProjectID(time.Now()) // project-1733412345678
	workerID, err := auth.NewWorkerID()     // worker-9c0e41a27f3b

# Passwords

Passwords are hashed with bcrypt. bcrypt silently truncates input past 72
bytes, so longer passwords are rejected instead:

	hash, err := auth.HashPassword(password)
	err = auth.VerifyPassword(hash, password)

VerifyPassword returns ErrInvalidPassword for every mismatch so callers
cannot tell an unknown email from a wrong password.

# Approval Permissions

	err := auth.CanSetApproval(userRole, "cray")

Admins and contractors may set any approval. Clients may only set the
client approval. Workers may set none. An empty user role is an internal
caller and is not restricted.
*/
package auth

// Copyright 2018-2024 CERN
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// In applying this license, CERN does not waive the privileges and immunities
// granted to it by virtue of its status as an Intergovernmental Organization
// or submit itself to any jurisdiction.

package wopi

import (
	"net/http"
)

// Lock acquires or refreshes an editing lock and reports the new item
// version on success.
func (s *svc) handleLock(w http.ResponseWriter, r *http.Request, id string) {
	res := s.locks.Lock(id, r.Header.Get(hdrLock))
	if !res.OK {
		s.writeLockMismatch(w, res.Lock, res.Reason)
		return
	}
	s.writeStatusWithVersion(w, r, id)
}

// Unlock releases the lock when the presented lock string matches.
func (s *svc) handleUnlock(w http.ResponseWriter, r *http.Request, id string) {
	res := s.locks.Unlock(id, r.Header.Get(hdrLock))
	if !res.OK {
		s.writeLockMismatch(w, res.Lock, res.Reason)
		return
	}
	s.writeStatusWithVersion(w, r, id)
}

// RefreshLock restarts the validity window of the held lock.
func (s *svc) handleRefreshLock(w http.ResponseWriter, r *http.Request, id string) {
	res := s.locks.Refresh(id, r.Header.Get(hdrLock))
	if !res.OK {
		s.writeLockMismatch(w, res.Lock, res.Reason)
		return
	}
	s.writeStatus(w, http.StatusOK)
}

// UnlockAndRelock atomically swaps the lock presented in X-WOPI-OldLock
// for the one in X-WOPI-Lock.
func (s *svc) handleUnlockAndRelock(w http.ResponseWriter, r *http.Request, id string) {
	newLock := r.Header.Get(hdrLock)
	res := s.locks.Relock(id, r.Header.Get(hdrOldLock), newLock)
	if !res.OK {
		s.writeLockMismatch(w, res.Lock, res.Reason)
		return
	}
	s.addHostHeaders(w)
	w.Header().Set(hdrOldLock, newLock)
	w.WriteHeader(http.StatusOK)
}

// GetLock reports the lock currently held on the file; the header is
// present and empty when the file is unlocked.
func (s *svc) handleGetLock(w http.ResponseWriter, r *http.Request, id string) {
	lck, _ := s.locks.Get(id)
	s.addHostHeaders(w)
	w.Header().Set(hdrLock, lck)
	w.WriteHeader(http.StatusOK)
}

// writeStatusWithVersion answers 200 with the current item version.
func (s *svc) writeStatusWithVersion(w http.ResponseWriter, r *http.Request, id string) {
	s.addHostHeaders(w)
	if md, err := s.statFile(r.Context(), id); err == nil {
		w.Header().Set(hdrItemVersion, md.Version)
	}
	w.WriteHeader(http.StatusOK)
}

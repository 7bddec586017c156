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

package wopi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cs3org/wopihost/internal/http/services/wopi"

	_ "github.com/cs3org/wopihost/pkg/proofkey/insecure"
	_ "github.com/cs3org/wopihost/pkg/storage/fs/local"
	_ "github.com/cs3org/wopihost/pkg/token/manager/jwt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("wopi", func() {
	var (
		handler  http.Handler
		root     string
		rootName string

		writeToken string
		readToken  string
	)

	do := func(method, path, tkn string, hdrs map[string]string, body string) *httptest.ResponseRecorder {
		target := path
		if tkn != "" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + "access_token=" + url.QueryEscape(tkn)
		}
		var rdr *strings.Reader
		if body != "" {
			rdr = strings.NewReader(body)
		} else {
			rdr = strings.NewReader("")
		}
		r := httptest.NewRequest(method, target, rdr)
		for k, v := range hdrs {
			r.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	override := func(id, tkn, op string, hdrs map[string]string, body string) *httptest.ResponseRecorder {
		h := map[string]string{"X-WOPI-Override": op}
		for k, v := range hdrs {
			h[k] = v
		}
		return do(http.MethodPost, "/files/"+id, tkn, h, body)
	}

	mint := func(user, fileid, perm string) string {
		path := "/accesstoken?user=" + url.QueryEscape(user) + "&fileid=" + url.QueryEscape(fileid)
		if perm != "" {
			path += "&permission=" + perm
		}
		w := do(http.MethodGet, path, "", nil, "")
		ExpectWithOffset(1, w.Code).To(Equal(http.StatusOK))
		var resp struct{ AccessToken string }
		ExpectWithOffset(1, json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		return resp.AccessToken
	}

	decode := func(w *httptest.ResponseRecorder, v interface{}) {
		ExpectWithOffset(1, json.Unmarshal(w.Body.Bytes(), v)).To(Succeed())
	}

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		rootName = filepath.Base(root)
		Expect(os.WriteFile(filepath.Join(root, "doc.docx"), []byte("original content"), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(root, "notes.txt"), []byte("some notes"), 0o644)).To(Succeed())

		svc, err := wopi.New(context.Background(), map[string]interface{}{
			"storage_root": root,
			"jwt_secret":   "test-secret",
			"users":        map[string]interface{}{"marie": "read"},
		})
		Expect(err).ToNot(HaveOccurred())
		handler = svc.Handler()

		writeToken = mint("einstein", "doc.docx", "")
		readToken = mint("marie", "doc.docx", "")
	})

	Describe("CheckFileInfo", func() {
		It("describes the file for a writer", func() {
			w := do(http.MethodGet, "/files/doc.docx", writeToken, nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("X-WOPI-ServerVersion")).ToNot(BeEmpty())
			Expect(w.Header().Get("X-WOPI-MachineName")).ToNot(BeEmpty())

			var info map[string]interface{}
			decode(w, &info)
			Expect(info["BaseFileName"]).To(Equal("doc.docx"))
			Expect(info["Size"]).To(BeNumerically("==", len("original content")))
			Expect(info["FileExtension"]).To(Equal(".docx"))
			Expect(info["ReadOnly"]).To(BeFalse())
			Expect(info["UserCanWrite"]).To(BeTrue())
			Expect(info["SupportsLocks"]).To(BeTrue())
			Expect(info["SupportsExtendedLockLength"]).To(BeTrue())
			Expect(info["UserCanNotWriteRelative"]).To(BeFalse())
			Expect(info["SupportedShareUrlTypes"]).To(ConsistOf("ReadOnly", "ReadWrite"))
			Expect(info["UserPrincipalName"]).To(Equal("einstein"))
			Expect(info["UserInfo"]).To(Equal(""))
			Expect(info["Version"]).ToNot(BeEmpty())
		})

		It("marks the file read-only for a reader", func() {
			w := do(http.MethodGet, "/files/doc.docx", readToken, nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))

			var info map[string]interface{}
			decode(w, &info)
			Expect(info["ReadOnly"]).To(BeTrue())
			Expect(info["UserCanWrite"]).To(BeFalse())
		})

		It("ignores the casing of the file id", func() {
			w := do(http.MethodGet, "/files/DOC.DOCX", writeToken, nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("reaches a document whose name contains a literal percent escape", func() {
			Expect(os.WriteFile(filepath.Join(root, "My%20File.docx"), []byte("x"), 0o644)).To(Succeed())

			tkn := mint("einstein", "my%20file.docx", "")
			w := do(http.MethodGet, "/files/My%2520File.docx", tkn, nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))

			var info map[string]interface{}
			decode(w, &info)
			Expect(info["BaseFileName"]).To(Equal("My%20File.docx"))
		})

		It("rejects a missing token", func() {
			w := do(http.MethodGet, "/files/doc.docx", "", nil, "")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects a token minted with no permission, even for reads", func() {
			none := mint("einstein", "doc.docx", "none")
			w := do(http.MethodGet, "/files/doc.docx", none, nil, "")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects a token bound to another file", func() {
			other := mint("einstein", "notes.txt", "")
			w := do(http.MethodGet, "/files/doc.docx", other, nil, "")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("answers 404 for an unknown file", func() {
			tkn := mint("einstein", "missing.docx", "")
			w := do(http.MethodGet, "/files/missing.docx", tkn, nil, "")
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GetFile", func() {
		It("streams the file bytes", func() {
			w := do(http.MethodGet, "/files/doc.docx/contents", writeToken, nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("original content"))
			Expect(w.Header().Get("X-WOPI-ItemVersion")).ToNot(BeEmpty())
		})

		It("answers 404 for an unknown file", func() {
			tkn := mint("einstein", "missing.docx", "")
			w := do(http.MethodGet, "/files/missing.docx/contents", tkn, nil, "")
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("the lock protocol", func() {
		It("walks the lock, put, unlock, get-lock sequence", func() {
			By("locking the unlocked file")
			w := override("doc.docx", writeToken, "LOCK", map[string]string{"X-WOPI-Lock": "L1"}, "")
			Expect(w.Code).To(Equal(http.StatusOK))

			By("rejecting a second lock with a different string")
			w = override("doc.docx", writeToken, "LOCK", map[string]string{"X-WOPI-Lock": "L2"}, "")
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(w.Header().Get("X-WOPI-Lock")).To(Equal("L1"))

			By("accepting a PutFile carrying the held lock")
			w = do(http.MethodPost, "/files/doc.docx/contents", writeToken,
				map[string]string{"X-WOPI-Lock": "L1"}, "updated content")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("X-WOPI-ItemVersion")).ToNot(BeEmpty())

			w = do(http.MethodGet, "/files/doc.docx/contents", writeToken, nil, "")
			Expect(w.Body.String()).To(Equal("updated content"))

			By("unlocking with the matching lock")
			w = override("doc.docx", writeToken, "UNLOCK", map[string]string{"X-WOPI-Lock": "L1"}, "")
			Expect(w.Code).To(Equal(http.StatusOK))

			By("reporting the file unlocked")
			w = override("doc.docx", writeToken, "GET_LOCK", nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Result().Header).To(HaveKey("X-Wopi-Lock"))
			Expect(w.Header().Get("X-WOPI-Lock")).To(Equal(""))
		})

		It("refreshes only a matching lock", func() {
			override("doc.docx", writeToken, "LOCK", map[string]string{"X-WOPI-Lock": "L1"}, "")

			w := override("doc.docx", writeToken, "REFRESH_LOCK", map[string]string{"X-WOPI-Lock": "L1"}, "")
			Expect(w.Code).To(Equal(http.StatusOK))

			w = override("doc.docx", writeToken, "REFRESH_LOCK", map[string]string{"X-WOPI-Lock": "nope"}, "")
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(w.Header().Get("X-WOPI-Lock")).To(Equal("L1"))
		})

		It("answers 409 with an empty lock and a reason on unlocked files", func() {
			for _, op := range []string{"UNLOCK", "REFRESH_LOCK"} {
				w := override("doc.docx", writeToken, op, map[string]string{"X-WOPI-Lock": "L1"}, "")
				Expect(w.Code).To(Equal(http.StatusConflict), op)
				Expect(w.Result().Header).To(HaveKey("X-Wopi-Lock"), op)
				Expect(w.Header().Get("X-WOPI-Lock")).To(Equal(""), op)
				Expect(w.Header().Get("X-WOPI-LockFailureReason")).To(Equal("File not locked"), op)
			}
		})

		It("swaps locks with UnlockAndRelock", func() {
			override("doc.docx", writeToken, "LOCK", map[string]string{"X-WOPI-Lock": "L1"}, "")

			w := override("doc.docx", writeToken, "LOCK",
				map[string]string{"X-WOPI-Lock": "M1", "X-WOPI-OldLock": "L1"}, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("X-WOPI-OldLock")).To(Equal("M1"))

			w = override("doc.docx", writeToken, "GET_LOCK", nil, "")
			Expect(w.Header().Get("X-WOPI-Lock")).To(Equal("M1"))
		})

		It("rejects UnlockAndRelock with a stale old lock", func() {
			override("doc.docx", writeToken, "LOCK", map[string]string{"X-WOPI-Lock": "L1"}, "")

			w := override("doc.docx", writeToken, "LOCK",
				map[string]string{"X-WOPI-Lock": "M1", "X-WOPI-OldLock": "stale"}, "")
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(w.Header().Get("X-WOPI-Lock")).To(Equal("L1"))
		})

		It("accepts lock strings longer than 1024 bytes", func() {
			long := strings.Repeat("x", 2048)
			w := override("doc.docx", writeToken, "LOCK", map[string]string{"X-WOPI-Lock": long}, "")
			Expect(w.Code).To(Equal(http.StatusOK))

			w = override("doc.docx", writeToken, "GET_LOCK", nil, "")
			Expect(w.Header().Get("X-WOPI-Lock")).To(Equal(long))
		})

		It("requires write access to lock", func() {
			w := override("doc.docx", readToken, "LOCK", map[string]string{"X-WOPI-Lock": "L1"}, "")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("answers 404 for any override on an unknown file", func() {
			tkn := mint("einstein", "missing.docx", "")
			for _, op := range []string{"LOCK", "UNLOCK", "GET_LOCK", "DELETE", "COBALT"} {
				w := override("missing.docx", tkn, op, map[string]string{"X-WOPI-Lock": "L1"}, "")
				Expect(w.Code).To(Equal(http.StatusNotFound), op)
			}
		})
	})

	Describe("PutFile", func() {
		It("accepts a write on an unlocked file", func() {
			w := do(http.MethodPost, "/files/doc.docx/contents", writeToken, nil, "new bytes")
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("rejects a write with the wrong lock", func() {
			override("doc.docx", writeToken, "LOCK", map[string]string{"X-WOPI-Lock": "L1"}, "")

			w := do(http.MethodPost, "/files/doc.docx/contents", writeToken,
				map[string]string{"X-WOPI-Lock": "L2"}, "evil bytes")
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(w.Header().Get("X-WOPI-Lock")).To(Equal("L1"))

			w = do(http.MethodGet, "/files/doc.docx/contents", writeToken, nil, "")
			Expect(w.Body.String()).To(Equal("original content"))
		})

		It("requires write access", func() {
			w := do(http.MethodPost, "/files/doc.docx/contents", readToken, nil, "x")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("DeleteFile", func() {
		It("refuses to delete a locked file", func() {
			override("doc.docx", writeToken, "LOCK", map[string]string{"X-WOPI-Lock": "L1"}, "")

			w := override("doc.docx", writeToken, "DELETE", nil, "")
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(w.Header().Get("X-WOPI-Lock")).To(Equal("L1"))
		})

		It("deletes an unlocked file", func() {
			w := override("doc.docx", writeToken, "DELETE", nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))

			w = do(http.MethodGet, "/files/doc.docx", writeToken, nil, "")
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("RenameFile", func() {
		It("renames the file", func() {
			w := override("doc.docx", writeToken, "RENAME_FILE",
				map[string]string{"X-WOPI-RequestedName": "report.docx"}, "")
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct{ Name string }
			decode(w, &resp)
			Expect(resp.Name).To(Equal("report.docx"))

			tkn := mint("einstein", "report.docx", "")
			w = do(http.MethodGet, "/files/report.docx", tkn, nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("answers 400 on a name collision", func() {
			w := override("doc.docx", writeToken, "RENAME_FILE",
				map[string]string{"X-WOPI-RequestedName": "notes.txt"}, "")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Header().Get("X-WOPI-InvalidFileNameError")).ToNot(BeEmpty())
		})

		It("enforces the lock", func() {
			override("doc.docx", writeToken, "LOCK", map[string]string{"X-WOPI-Lock": "L1"}, "")

			w := override("doc.docx", writeToken, "RENAME_FILE",
				map[string]string{"X-WOPI-RequestedName": "report.docx", "X-WOPI-Lock": "wrong"}, "")
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(w.Header().Get("X-WOPI-Lock")).To(Equal("L1"))
		})
	})

	Describe("PutRelativeFile", func() {
		It("swaps the extension for a dot-suffix suggested target", func() {
			w := override("doc.docx", writeToken, "PUT_RELATIVE",
				map[string]string{"X-WOPI-SuggestedTarget": ".pdf"}, "%PDF-1.4 pretend")
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct{ Name, Url, HostViewUrl, HostEditUrl string }
			decode(w, &resp)
			Expect(resp.Name).To(Equal("doc.pdf"))
			for _, u := range []string{resp.Url, resp.HostViewUrl, resp.HostEditUrl} {
				Expect(u).To(ContainSubstring("/wopi/files/doc.pdf"))
				Expect(u).To(ContainSubstring("access_token="))
			}

			tkn := mint("einstein", "doc.pdf", "")
			w = do(http.MethodGet, "/files/doc.pdf/contents", tkn, nil, "")
			Expect(w.Body.String()).To(Equal("%PDF-1.4 pretend"))
		})

		It("dodges collisions on suggested targets with a fresh name", func() {
			w := override("doc.docx", writeToken, "PUT_RELATIVE",
				map[string]string{"X-WOPI-SuggestedTarget": "notes.txt"}, "body")
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct{ Name string }
			decode(w, &resp)
			Expect(resp.Name).ToNot(Equal("notes.txt"))
			Expect(resp.Name).To(HaveSuffix("notes.txt"))
		})

		It("refuses an existing relative target without overwrite", func() {
			w := override("doc.docx", writeToken, "PUT_RELATIVE",
				map[string]string{"X-WOPI-RelativeTarget": "notes.txt"}, "body")
			Expect(w.Code).To(Equal(http.StatusConflict))
		})

		It("overwrites an unlocked relative target when asked to", func() {
			w := override("doc.docx", writeToken, "PUT_RELATIVE",
				map[string]string{
					"X-WOPI-RelativeTarget":          "notes.txt",
					"X-WOPI-OverwriteRelativeTarget": "true",
				}, "fresh notes")
			Expect(w.Code).To(Equal(http.StatusOK))

			tkn := mint("einstein", "notes.txt", "")
			w = do(http.MethodGet, "/files/notes.txt/contents", tkn, nil, "")
			Expect(w.Body.String()).To(Equal("fresh notes"))
		})

		It("refuses to overwrite a locked relative target", func() {
			tkn := mint("einstein", "notes.txt", "")
			override("notes.txt", tkn, "LOCK", map[string]string{"X-WOPI-Lock": "NL"}, "")

			w := override("doc.docx", writeToken, "PUT_RELATIVE",
				map[string]string{
					"X-WOPI-RelativeTarget":          "notes.txt",
					"X-WOPI-OverwriteRelativeTarget": "true",
				}, "fresh notes")
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(w.Header().Get("X-WOPI-Lock")).To(Equal("NL"))
		})

		It("requires exactly one target header", func() {
			w := override("doc.docx", writeToken, "PUT_RELATIVE", nil, "body")
			Expect(w.Code).To(Equal(http.StatusNotImplemented))

			w = override("doc.docx", writeToken, "PUT_RELATIVE",
				map[string]string{
					"X-WOPI-SuggestedTarget": "a.docx",
					"X-WOPI-RelativeTarget":  "b.docx",
				}, "body")
			Expect(w.Code).To(Equal(http.StatusNotImplemented))
		})

		It("accepts a matching size header and rejects a malformed one", func() {
			w := override("doc.docx", writeToken, "PUT_RELATIVE",
				map[string]string{
					"X-WOPI-SuggestedTarget": "sized.docx",
					"X-WOPI-Size":            "4",
				}, "body")
			Expect(w.Code).To(Equal(http.StatusOK))

			w = override("doc.docx", writeToken, "PUT_RELATIVE",
				map[string]string{
					"X-WOPI-SuggestedTarget": "sized2.docx",
					"X-WOPI-Size":            "not-a-number",
				}, "body")
			Expect(w.Code).To(Equal(http.StatusBadRequest))

			w = override("doc.docx", writeToken, "PUT_RELATIVE",
				map[string]string{
					"X-WOPI-SuggestedTarget": "sized3.docx",
					"X-WOPI-Size":            "-1",
				}, "body")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("percent-decodes the target name", func() {
			w := override("doc.docx", writeToken, "PUT_RELATIVE",
				map[string]string{"X-WOPI-SuggestedTarget": "annual%20report.docx"}, "body")
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct{ Name string }
			decode(w, &resp)
			Expect(resp.Name).To(Equal("annual report.docx"))
		})
	})

	Describe("GetShareUrl", func() {
		It("returns a share url for known url types", func() {
			for _, typ := range []string{"ReadOnly", "ReadWrite"} {
				w := override("doc.docx", writeToken, "GET_SHARE_URL",
					map[string]string{"X-WOPI-UrlType": typ}, "")
				Expect(w.Code).To(Equal(http.StatusOK), typ)

				var resp struct{ ShareUrl string }
				decode(w, &resp)
				Expect(resp.ShareUrl).To(ContainSubstring("access_token="), typ)
			}
		})

		It("answers 501 for unknown url types", func() {
			w := override("doc.docx", writeToken, "GET_SHARE_URL",
				map[string]string{"X-WOPI-UrlType": "Banana"}, "")
			Expect(w.Code).To(Equal(http.StatusNotImplemented))
		})
	})

	Describe("PutUserInfo", func() {
		It("stores the blob and surfaces it in CheckFileInfo", func() {
			w := override("doc.docx", writeToken, "PUT_USER_INFO", nil, `{"pref":"dark"}`)
			Expect(w.Code).To(Equal(http.StatusOK))

			w = do(http.MethodGet, "/files/doc.docx", writeToken, nil, "")
			var info map[string]interface{}
			decode(w, &info)
			Expect(info["UserInfo"]).To(Equal(`{"pref":"dark"}`))

			// other users do not see it
			w = do(http.MethodGet, "/files/doc.docx", readToken, nil, "")
			decode(w, &info)
			Expect(info["UserInfo"]).To(Equal(""))
		})

		It("rejects an oversized blob instead of truncating it", func() {
			w := override("doc.docx", writeToken, "PUT_USER_INFO", nil, strings.Repeat("x", 1<<20+1))
			Expect(w.Code).To(Equal(http.StatusBadRequest))

			w = do(http.MethodGet, "/files/doc.docx", writeToken, nil, "")
			var info map[string]interface{}
			decode(w, &info)
			Expect(info["UserInfo"]).To(Equal(""))
		})
	})

	Describe("restricted links", func() {
		It("requires the FORMS header", func() {
			for _, op := range []string{"GET_RESTRICTED_LINK", "REVOKE_RESTRICTED_LINK"} {
				w := override("doc.docx", writeToken, op, nil, "")
				Expect(w.Code).To(Equal(http.StatusNotImplemented), op)
			}
		})

		It("serves a link until it is revoked", func() {
			forms := map[string]string{"X-WOPI-RestrictedUseLink": "FORMS"}

			w := override("doc.docx", writeToken, "GET_RESTRICTED_LINK", forms, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("X-WOPI-RestrictedUseLink")).To(Equal("http://officeserver4/restricted/doc.docx"))

			w = override("doc.docx", writeToken, "REVOKE_RESTRICTED_LINK", forms, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			// revoking twice is fine
			w = override("doc.docx", writeToken, "REVOKE_RESTRICTED_LINK", forms, "")
			Expect(w.Code).To(Equal(http.StatusOK))

			w = override("doc.docx", writeToken, "GET_RESTRICTED_LINK", forms, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("X-WOPI-RestrictedUseLink")).To(Equal(""))
		})
	})

	Describe("ReadSecureStore", func() {
		It("requires an application id", func() {
			w := override("doc.docx", writeToken, "READ_SECURE_STORE", nil, "")
			Expect(w.Code).To(Equal(http.StatusNotImplemented))
		})

		It("returns the credential set", func() {
			w := override("doc.docx", writeToken, "READ_SECURE_STORE",
				map[string]string{"X-WOPI-ApplicationId": "app-1"}, "")
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				UserName             string
				Password             string
				IsWindowsCredentials bool
				IsGroup              bool
			}
			decode(w, &resp)
			Expect(resp.UserName).To(Equal("WopiTestUser"))
			Expect(resp.Password).ToNot(BeEmpty())
			Expect(w.Header().Get("X-WOPI-PerfTrace")).To(BeEmpty())
		})

		It("emits a perf trace on request", func() {
			w := override("doc.docx", writeToken, "READ_SECURE_STORE",
				map[string]string{
					"X-WOPI-ApplicationId":      "app-1",
					"X-WOPI-PerfTraceRequested": "true",
				}, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("X-WOPI-PerfTrace")).ToNot(BeEmpty())
		})
	})

	Describe("AddActivities", func() {
		It("acknowledges every activity in order", func() {
			body := `{"Activities":[
				{"Type":"Comment","Id":"a-1","Timestamp":"2024-03-01T12:00:00Z","Data":{"ContentId":"c1","ContentAction":"add"}},
				{"Type":"Edit","Id":"a-2","Timestamp":"2024-03-01T12:01:00Z","Data":{"ContentId":"c2","ContentAction":"mod"}}]}`

			w := override("doc.docx", writeToken, "ADD_ACTIVITIES", nil, body)
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				ActivityResponses []struct {
					Id      string
					Status  int
					Message string
				}
			}
			decode(w, &resp)
			Expect(resp.ActivityResponses).To(HaveLen(2))
			Expect(resp.ActivityResponses[0].Id).To(Equal("a-1"))
			Expect(resp.ActivityResponses[1].Id).To(Equal("a-2"))
			Expect(resp.ActivityResponses[0].Status).To(Equal(0))
		})
	})

	Describe("unsupported operations", func() {
		It("answers 501 for cobalt", func() {
			w := override("doc.docx", writeToken, "COBALT", nil, "")
			Expect(w.Code).To(Equal(http.StatusNotImplemented))
		})

		It("answers 500 for an unknown override", func() {
			w := override("doc.docx", writeToken, "FROBNICATE", nil, "")
			Expect(w.Code).To(Equal(http.StatusInternalServerError))

			w = do(http.MethodPost, "/files/doc.docx", writeToken, nil, "")
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("folders", func() {
		It("describes the root folder, ignoring case", func() {
			tkn := mint("einstein", rootName, "")
			w := do(http.MethodGet, "/folders/"+url.PathEscape(strings.ToUpper(rootName)), tkn, nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct{ FolderName, OwnerId string }
			decode(w, &resp)
			Expect(resp.FolderName).To(Equal(rootName))
			Expect(resp.OwnerId).To(Equal("admin"))
		})

		It("answers 404 for any other folder", func() {
			tkn := mint("einstein", "otherfolder", "")
			w := do(http.MethodGet, "/folders/otherfolder", tkn, nil, "")
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("enumerates the children with fresh tokens", func() {
			tkn := mint("einstein", rootName, "")
			w := do(http.MethodGet, "/folders/"+url.PathEscape(rootName)+"/children", tkn, nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Children []struct{ Name, Version, Url string }
			}
			decode(w, &resp)
			Expect(resp.Children).To(HaveLen(2))
			names := []string{resp.Children[0].Name, resp.Children[1].Name}
			Expect(names).To(ConsistOf("doc.docx", "notes.txt"))
			for _, c := range resp.Children {
				Expect(c.Url).To(ContainSubstring("access_token="))
				Expect(c.Version).ToNot(BeEmpty())
			}
		})
	})

	Describe("EnumerateAncestors", func() {
		It("reports the root as the only ancestor", func() {
			w := do(http.MethodGet, "/files/doc.docx/ancestry", writeToken, nil, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("X-WOPI-EnumerationIncomplete")).To(Equal("true"))

			var resp struct {
				AncestorsWithRootFirst []struct{ Name, Url string }
			}
			decode(w, &resp)
			Expect(resp.AncestorsWithRootFirst).To(HaveLen(1))
			Expect(resp.AncestorsWithRootFirst[0].Name).To(Equal(rootName))
			Expect(resp.AncestorsWithRootFirst[0].Url).To(ContainSubstring("access_token="))
		})
	})
})

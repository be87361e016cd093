package ingest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestUploadSuccess(t *testing.T) {
	var gotPath, gotFilename, gotContentType string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotFilename = header.Filename
		gotContentType = header.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(file)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"File uploaded and processed successfully","rows_processed":3}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, nil)
	if err := client.Upload(context.Background(), "report.xlsx", []byte("cells")); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if gotPath != "/api/files/upload" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotFilename != "report.xlsx" {
		t.Fatalf("filename = %q", gotFilename)
	}
	if gotContentType != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("part content type = %q", gotContentType)
	}
	if string(gotBody) != "cells" {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestUploadXlsContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
		}
		if got := header.Header.Get("Content-Type"); got != "application/vnd.ms-excel" {
			t.Errorf("part content type = %q", got)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, nil)
	if err := client.Upload(context.Background(), "legacy.xls", []byte("x")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
}

func TestUploadErrorBodyMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"invalid format"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, nil)
	err := client.Upload(context.Background(), "bad.xlsx", []byte("x"))
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "invalid format" {
		t.Fatalf("err = %q, want bare server message", err.Error())
	}
	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) || uploadErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("err = %#v, want UploadError with status 500", err)
	}
}

func TestUploadNonJSONErrorBodyUsesGenericMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream sad</html>"))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, nil)
	err := client.Upload(context.Background(), "bad.xlsx", []byte("x"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("err = %q, want generic message naming the status", err.Error())
	}
}

func TestUploadUnparseableSuccessBodyIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("definitely not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, nil)
	if err := client.Upload(context.Background(), "odd.xlsx", []byte("x")); err == nil {
		t.Fatal("200 with unparseable body must be a failure")
	}
}

func TestUploadNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := NewClient(server.URL, time.Second, nil)
	if err := client.Upload(context.Background(), "a.xlsx", []byte("x")); err == nil {
		t.Fatal("expected network error")
	}
}

func TestList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/data/list" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("per_page") != "5" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"data":[{"docno":"1"}],"total":11,"page":2,"per_page":5,"total_pages":3}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, nil)
	page, err := client.List(context.Background(), 2, 5)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 11 || page.TotalPages != 3 || len(page.Data) != 1 {
		t.Fatalf("page = %+v", page)
	}
}

func TestDeleteAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/data/delete-all" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"message":"All records deleted successfully","records_deleted":42}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, nil)
	deleted, err := client.DeleteAll(context.Background())
	if err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if deleted != 42 {
		t.Fatalf("deleted = %d, want 42", deleted)
	}
}

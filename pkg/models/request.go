/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package models

import (
	"fmt"
	"strings"
)

// Method is the closed set of HTTP methods a delivery request may use
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// TenantHeader is the header used to scope requests to a merchant tenant
const TenantHeader = "X-Tenant-ID"

// ParseMethod validates and normalizes an HTTP method string
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToUpper(strings.TrimSpace(s))) {
	case MethodGet:
		return MethodGet, nil
	case MethodPost:
		return MethodPost, nil
	case MethodPut:
		return MethodPut, nil
	case MethodPatch:
		return MethodPatch, nil
	case MethodDelete:
		return MethodDelete, nil
	default:
		return "", fmt.Errorf("unsupported HTTP method: %q", s)
	}
}

// String returns the method as an HTTP verb
func (m Method) String() string {
	return string(m)
}

// Mutating reports whether the method modifies server-side state.
// Mutating requests carry idempotency keys and are eligible for the outbox.
func (m Method) Mutating() bool {
	switch m {
	case MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	default:
		return false
	}
}

// Request describes one outbound API call before it is handed to the
// resilient client. Construct via NewRequest so the method set stays closed.
type Request struct {
	URL            string
	Method         Method
	Headers        map[string]string
	Body           []byte
	IdempotencyKey string
}

// RequestOption customizes a Request at construction time
type RequestOption func(*Request)

// WithHeader sets a single header on the request
func WithHeader(name, value string) RequestOption {
	return func(r *Request) {
		r.Headers[name] = value
	}
}

// WithTenant scopes the request to a merchant tenant
func WithTenant(tenantID string) RequestOption {
	return func(r *Request) {
		r.Headers[TenantHeader] = tenantID
	}
}

// NewRequest builds a validated request descriptor
func NewRequest(method, url string, body []byte, opts ...RequestOption) (*Request, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("request URL must not be empty")
	}

	req := &Request{
		URL:     url,
		Method:  m,
		Headers: make(map[string]string),
		Body:    body,
	}

	for _, opt := range opts {
		opt(req)
	}

	return req, nil
}

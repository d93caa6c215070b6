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

package client

import (
	"context"
	"net/http"

	"github.com/kessotolo/commerce-delivery/pkg/models"
)

// Get performs a GET request
func (c *Client) Get(ctx context.Context, url string, opts ...models.RequestOption) (*http.Response, error) {
	req, err := models.NewRequest(http.MethodGet, url, nil, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Post performs a POST request with a JSON body
func (c *Client) Post(ctx context.Context, url string, body []byte, opts ...models.RequestOption) (*http.Response, error) {
	req, err := models.NewRequest(http.MethodPost, url, body, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Put performs a PUT request with a JSON body
func (c *Client) Put(ctx context.Context, url string, body []byte, opts ...models.RequestOption) (*http.Response, error) {
	req, err := models.NewRequest(http.MethodPut, url, body, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Patch performs a PATCH request with a JSON body
func (c *Client) Patch(ctx context.Context, url string, body []byte, opts ...models.RequestOption) (*http.Response, error) {
	req, err := models.NewRequest(http.MethodPatch, url, body, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, url string, opts ...models.RequestOption) (*http.Response, error) {
	req, err := models.NewRequest(http.MethodDelete, url, nil, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

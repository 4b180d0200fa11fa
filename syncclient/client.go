// syncclient/client.go
package syncclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Gin_postgres_redis_hvac_inventory/models"
)

// ErrRemoteUnavailable 网络不通或认证失败。fetchAll 的调用方据此
// 回落到本地缓存；upsert/delete 的调用方提示用户重试（乐观状态保留）。
var ErrRemoteUnavailable = errors.New("remote store unavailable")

// Client 远端条目集合的 HTTP 客户端。显式构造、显式注入，
// 不搞进程级单例，测试时用 httptest/内存实现替换。
type Client struct {
	BaseURL string
	Token   string // 身份提供方签发的令牌，走 Authorization: Bearer
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: auth rejected (%d)", ErrRemoteUnavailable, resp.StatusCode)
	case resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: server error (%d)", ErrRemoteUnavailable, resp.StatusCode)
	}
	return resp, nil
}

// FetchAll 全量拉取，远端按 updated_at 降序返回
func (c *Client) FetchAll(ctx context.Context) ([]models.Item, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/items", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch items: status %d", resp.StatusCode)
	}
	var out struct {
		Items []models.Item `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}
	return out.Items, nil
}

// Upsert 整条上送（缺 id 远端会补），同 id 重复调用是幂等替换。
// 返回远端落库后的权威行（updated_at 以远端为准）。
func (c *Client) Upsert(ctx context.Context, it models.Item) (models.Item, error) {
	raw, err := json.Marshal(it)
	if err != nil {
		return models.Item{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPut, "/api/items", bytes.NewReader(raw))
	if err != nil {
		return models.Item{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return models.Item{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return models.Item{}, fmt.Errorf("upsert item: status %d", resp.StatusCode)
	}
	var saved models.Item
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		return models.Item{}, fmt.Errorf("upsert item: %w", err)
	}
	return saved, nil
}

// Delete 幂等：远端没有这个 id 也不算错
func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/items/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete item: status %d", resp.StatusCode)
	}
	return nil
}

// Subscribe 打开长连推送（SSE），每条变更事件回调一次。
// 返回的 stop 负责断开连接并等派发 goroutine 退出；stop 之后不再有回调。
func (c *Client) Subscribe(ctx context.Context, onEvent func(models.ChangeEvent)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := c.newRequest(ctx, http.MethodGet, "/api/items/events", nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// 推送流不能吃 15s 超时，单独用无超时的客户端
	httpc := &http.Client{Transport: c.HTTP.Transport}
	resp, err := httpc.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: subscribe status %d", ErrRemoteUnavailable, resp.StatusCode)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer resp.Body.Close()
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var data []byte
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "data:"):
				data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")...)
			case line == "":
				if len(data) > 0 {
					var ev models.ChangeEvent
					if err := json.Unmarshal(data, &ev); err == nil {
						select {
						case <-ctx.Done():
							return
						default:
							onEvent(ev)
						}
					}
					data = data[:0]
				}
			}
		}
	}()

	stop := func() {
		cancel()
		<-done
	}
	return stop, nil
}

// Subscription SubscribeToChanges 的句柄，Close 释放底层连接
type Subscription struct {
	stop func()
}

func (s *Subscription) Close() error {
	s.stop()
	return nil
}

// SubscribeToChanges 按事件类型分发的便捷包装
func (c *Client) SubscribeToChanges(ctx context.Context, onInsert, onUpdate, onDelete func(models.Item)) (*Subscription, error) {
	stop, err := c.Subscribe(ctx, func(ev models.ChangeEvent) {
		switch ev.Type {
		case models.EventInsert:
			if onInsert != nil {
				onInsert(ev.Item)
			}
		case models.EventUpdate:
			if onUpdate != nil {
				onUpdate(ev.Item)
			}
		case models.EventDelete:
			if onDelete != nil {
				onDelete(ev.Item)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return &Subscription{stop: stop}, nil
}

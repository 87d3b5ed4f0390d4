package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lumina_shop/internal/model"
)

func TestNotifier_AutoDismiss(t *testing.T) {
	n := NewNotifier(30 * time.Millisecond)
	n.Show("hello", model.ToastSuccess)

	assert.True(t, n.Current().Visible)
	assert.Eventually(t, func() bool { return !n.Current().Visible }, time.Second, 5*time.Millisecond)
	// 隐藏后保留最后一条内容
	assert.Equal(t, "hello", n.Current().Message)
}

func TestNotifier_OverwriteKeepsNewest(t *testing.T) {
	n := NewNotifier(200 * time.Millisecond)
	n.Show("first", model.ToastInfo)
	time.Sleep(120 * time.Millisecond)
	n.Show("second", model.ToastError)

	// 第一条的到期时间已过，第二条仍可见
	time.Sleep(120 * time.Millisecond)
	cur := n.Current()
	assert.True(t, cur.Visible)
	assert.Equal(t, "second", cur.Message)
	assert.Equal(t, model.ToastError, cur.Type)

	assert.Eventually(t, func() bool { return !n.Current().Visible }, time.Second, 5*time.Millisecond)
}

func TestNotifier_Dismiss(t *testing.T) {
	n := NewNotifier(time.Hour)
	n.Show("bye", model.ToastInfo)
	n.Dismiss()
	assert.False(t, n.Current().Visible)

	n.Show("again", model.ToastInfo)
	assert.True(t, n.Current().Visible)
}

func TestNotifier_NoTTL(t *testing.T) {
	n := NewNotifier(0)
	n.Show("sticky", model.ToastSuccess)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, n.Current().Visible)
}

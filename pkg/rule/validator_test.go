package rule_test

import (
	"testing"

	"github.com/yeisme/snapvault/pkg/rule"
)

// retrieveForm 用于测试 ValidateStruct.
type retrieveForm struct {
	OTP  string `rule:"required,otp"`
	Path string `rule:"required"`
}

// TestEngine 测试 Engine 函数返回非 nil 实例.
func TestEngine(t *testing.T) {
	engine := rule.Engine()
	if engine == nil {
		t.Error("Engine() returned nil")
	}
}

// TestValidateStruct 测试 ValidateStruct 对有效和无效结构体的验证.
func TestValidateStruct(t *testing.T) {
	// 有效结构体
	valid := retrieveForm{OTP: "1234", Path: "1234/photo.jpg"}

	err := rule.ValidateStruct(valid)
	if err != nil {
		t.Errorf("Expected no error for valid struct, got %v", err)
	}

	// 无效结构体：缺少 Path
	invalid1 := retrieveForm{OTP: "1234"}

	err = rule.ValidateStruct(invalid1)
	if err == nil {
		t.Error("Expected error for invalid struct (missing path), got nil")
	}

	// 无效结构体：OTP 非 4 位数字
	invalid2 := retrieveForm{OTP: "12a4", Path: "12a4/photo.jpg"}

	err = rule.ValidateStruct(invalid2)
	if err == nil {
		t.Error("Expected error for invalid struct (bad otp), got nil")
	}
}

// TestValidOTP 测试取件码格式校验.
func TestValidOTP(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"0000", true},
		{"9999", true},
		{"1234", true},
		{"123", false},
		{"12345", false},
		{"12a4", false},
		{"", false},
		{"12 4", false},
		{"-123", false},
	}

	for _, tc := range cases {
		if got := rule.ValidOTP(tc.code); got != tc.want {
			t.Errorf("ValidOTP(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

// TestValidateVar 测试 ValidateVar 对变量的验证.
func TestValidateVar(t *testing.T) {
	if err := rule.ValidateVar("4821", "required,otp"); err != nil {
		t.Errorf("Expected no error for valid otp, got %v", err)
	}

	if err := rule.ValidateVar("48217", "required,otp"); err == nil {
		t.Error("Expected error for 5-digit otp, got nil")
	}
}
